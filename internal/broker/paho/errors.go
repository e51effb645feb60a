package paho

import "errors"

var (
	// ErrNotConnected is returned when attempting an operation on a
	// disconnected client.
	ErrNotConnected = errors.New("paho: client not connected")

	// ErrConnectionFailed is returned when the initial connection
	// attempt fails.
	ErrConnectionFailed = errors.New("paho: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("paho: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("paho: subscribe failed")

	// ErrInvalidTopic is returned when an empty topic is given.
	ErrInvalidTopic = errors.New("paho: topic cannot be empty")

	// ErrInvalidQoS is returned for a QoS outside 0, 1, 2.
	ErrInvalidQoS = errors.New("paho: invalid QoS level (must be 0, 1, or 2)")
)
