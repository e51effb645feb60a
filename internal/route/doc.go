// Package route holds the routing rules loaded from configuration and
// resolves incoming topics to the routes that should process them.
//
// Routes are loaded once at startup and are immutable afterward; the
// Registry exposes only read paths to the rest of the engine.
package route
