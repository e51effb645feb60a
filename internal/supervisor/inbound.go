package supervisor

import (
	"time"

	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
)

// matcher resolves a topic to the routes it should be processed against.
// Satisfied by *route.Registry.
type matcher interface {
	Match(topic string) []*route.Route
}

// processor runs the transform pipeline for one route/message pair.
// Satisfied by *pipeline.Pipeline.
type processor interface {
	Process(r *route.Route, msg pipeline.Message) []pipeline.Job
}

// enqueuer accepts a produced Job for dispatch. Satisfied by
// *dispatch.Dispatcher.
type enqueuer interface {
	Enqueue(job pipeline.Job)
}

// inboundHandler turns one broker delivery into zero or more dispatch
// Jobs: every route whose topic_pattern matches the delivery's topic
// runs the transform pipeline independently, and every Job it produces
// is handed to the dispatcher.
type inboundHandler struct {
	routes     matcher
	pipeline   processor
	dispatcher enqueuer
	logger     Logger
}

func newInboundHandler(routes matcher, pl processor, dispatcher enqueuer, logger Logger) *inboundHandler {
	return &inboundHandler{routes: routes, pipeline: pl, dispatcher: dispatcher, logger: logger}
}

// handle implements paho.MessageHandler.
func (h *inboundHandler) handle(topic string, payload []byte, qos byte, retained bool) error {
	msg := pipeline.Message{
		Topic:       topic,
		Payload:     payload,
		QoS:         int(qos),
		Retained:    retained,
		ReceiveTime: time.Now(),
	}

	matched := h.routes.Match(topic)
	if len(matched) == 0 {
		h.logger.Debug("no route matched inbound message", "topic", topic)
		return nil
	}

	for _, r := range matched {
		jobs := h.pipeline.Process(r, msg)
		for _, job := range jobs {
			h.dispatcher.Enqueue(job)
		}
	}
	return nil
}
