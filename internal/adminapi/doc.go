// Package adminapi provides the HTTP REST API and WebSocket event stream
// for observing and exercising a running bridge: loaded routes, services,
// and targets, per-target queue depth, recent delivery outcomes, and a
// "fire test message" endpoint for manually exercising a plugin target.
//
// It follows the same lifecycle pattern as the rest of warnbridge's
// infrastructure components:
//
//	server, err := adminapi.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use from multiple
// goroutines.
package adminapi
