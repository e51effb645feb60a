package dispatch

import "time"

// EventType names a point in a Job's lifecycle worth telling an admin
// observer about.
type EventType string

const (
	EventEnqueued      EventType = "enqueued"
	EventDelivered     EventType = "delivered"
	EventRetrying      EventType = "retrying"
	EventFailedOver    EventType = "failed_over"
	EventFailoverFailed EventType = "failover_failed"
	EventDropped       EventType = "dropped"
)

// JobEvent is a single lifecycle transition for a Job, broadcast to the
// admin API's WebSocket hub. Unlike DeliveryRecord, which only exists
// for terminal outcomes worth auditing, JobEvent covers every
// observable transition including ones that never reach a terminal
// state (enqueued, retrying).
type JobEvent struct {
	Type         EventType
	JobID        string
	Timestamp    time.Time
	RouteName    string
	Service      string
	Target       string
	Topic        string
	AttemptCount int
}

// Events receives Job lifecycle events as they happen. A nil Events is
// replaced with a no-op implementation, matching the History/Metrics
// fallback pattern.
type Events interface {
	Publish(e JobEvent)
}

type noopEvents struct{}

func (noopEvents) Publish(JobEvent) {}
