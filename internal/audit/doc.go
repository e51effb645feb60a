// Package audit records operator-facing actions against the admin API —
// logins and manual test-message fires — distinct from the delivery
// history kept by internal/history, which records Job outcomes rather
// than operator activity.
package audit
