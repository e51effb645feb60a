// Package config loads and validates warnbridge's YAML configuration.
//
// Configuration loading follows three layers, applied in order:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. YAML file values (override defaults)
//  3. Environment variable overrides (override file values)
//
// Environment variables follow the pattern WARNBRIDGE_SECTION_KEY, e.g.
// WARNBRIDGE_MQTT_HOST, WARNBRIDGE_JWT_SECRET.
//
// The routing-specific sections (routes, services, periodic tasks,
// failover, defaults) describe the Route, ServiceConfig, and Target data
// model. They are declarative — loaded once at startup and never mutated
// afterward, so the rest of the engine can treat them as read-only without
// locking.
package config
