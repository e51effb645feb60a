package pipeline

import "time"

// Message is an immutable record of one broker delivery.
type Message struct {
	Topic       string
	Payload     []byte
	QoS         int
	Retained    bool
	ReceiveTime time.Time
}
