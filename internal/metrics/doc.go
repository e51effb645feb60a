// Package metrics is the optional Metrics Reporter: in-process counters
// per (service, target), periodically flushed to InfluxDB as points.
// Disabled entirely when InfluxDB.Enabled is false, mirroring the
// teacher's "if cfg.InfluxDB.Enabled" gate around the whole integration.
package metrics
