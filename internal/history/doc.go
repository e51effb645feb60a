// Package history is the Delivery History Store: a SQLite-backed log of
// every terminal Job outcome (delivered, failed over, or abandoned after
// failover exhaustion), written once per Job and queryable by the admin
// API's recent-deliveries endpoint.
package history
