// Package paho is the MQTT broker adapter: a concrete implementation of
// the broker contract (connect, subscribe, publish, disconnect, plus an
// asynchronous on_message/on_disconnect callback pair) built on
// github.com/eclipse/paho.mqtt.golang. Connection loss is recovered by
// the underlying library's auto-reconnect with exponential backoff;
// subscriptions are tracked and restored automatically once the
// connection comes back.
package paho
