// Package supervisor wires every warnbridge package into one running
// daemon: given a loaded configuration, it opens the delivery history database,
// builds the routing and plugin registries, connects the MQTT broker,
// and starts the admin API, in the dependency order each component
// requires, then tears everything down in reverse on shutdown.
package supervisor
