// Package plugin defines the service plugin contract and the Registry
// that loads configured service instances and dispatches Jobs to them.
//
// A plugin implements one operation set: Init, called once at startup,
// and Deliver, called once per Job. Deliver must be synchronous and
// return within a plugin-specific timeout; a panic during Deliver is
// recovered and treated as a failed delivery rather than crashing the
// worker that called it.
package plugin
