// Package target resolves a route's targets_spec to a concrete list of
// (service, target-name) pairs.
//
// Three forms are supported: a static "service:target" list, a
// "{name}"-interpolated template string, and a reference to a helper
// function registered in internal/helperfn. Resolution is robust by
// design: an invalid spec or an unresolved reference is logged and
// dropped rather than treated as fatal, so valid siblings still get
// delivered.
package target
