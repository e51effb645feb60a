// Package match resolves a concrete MQTT topic string to the ordered list
// of registered patterns it satisfies.
//
// Patterns use MQTT wildcard syntax: "+" matches exactly one level, "#"
// matches one or more remaining levels and is only legal as the final
// segment. Matching is case-sensitive and empty levels are preserved.
//
// Registrations are indexed in a segment trie so lookups avoid a linear
// scan over every pattern, but results are always returned in the order
// patterns were registered, never by specificity.
package match
