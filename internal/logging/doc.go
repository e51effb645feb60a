// Package logging provides structured logging for warnbridge.
//
// It wraps the standard log/slog package to give consistent, structured
// output across the routing and dispatch engine.
//
// # Features
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on every entry
//   - Level-based filtering (debug, info, warn, error)
//   - Safe for concurrent use
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting daemon", "routes", len(cfg.Routes))
//	logger.Error("dispatch failed", "error", err)
package logging
