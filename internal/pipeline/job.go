package pipeline

import (
	"github.com/google/uuid"

	"github.com/nerrad/warnbridge/internal/target"
)

// Job is a unit of work placed on a dispatch queue. Owned exclusively by
// the queue until the worker acknowledges completion or failure.
type Job struct {
	ID           string
	Target       target.Target
	RouteName    string
	Topic        string
	Title        string
	Body         string
	Payload      []byte
	Image        string
	Context      map[string]any
	Priority     int
	AttemptCount int
}

// NewJobID generates a fresh Job identifier, used once per target a
// route resolves to and carried through retries and failover.
func NewJobID() string {
	return uuid.NewString()
}
