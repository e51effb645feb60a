package paho

import "fmt"

// maxPayloadSize guards against unbounded payloads; MQTT itself allows
// up to 256MB but brokers commonly cap far lower, so plugin output is
// bounded here before it ever reaches the wire.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends payload to topic at the given QoS, optionally retained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d byte limit", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout publishing to %q", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// PublishString is a convenience wrapper for string payloads.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes payload with the retained flag set.
func (c *Client) PublishRetained(topic string, payload []byte, qos byte) error {
	return c.Publish(topic, payload, qos, true)
}
