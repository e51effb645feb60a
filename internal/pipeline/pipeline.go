package pipeline

import (
	"errors"

	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/target"
)

// Logger defines the logging interface used by the Pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Targeter resolves a route's targets_spec into concrete targets.
// Satisfied by *target.Expander; a narrow interface here keeps the
// pipeline decoupled from target construction.
type Targeter interface {
	Expand(r *route.Route, topic string, ctx map[string]any) []target.Target
}

// Pipeline evaluates routes against messages, producing Jobs.
type Pipeline struct {
	helpers              *helperfn.Registry
	targets              Targeter
	templates            TemplateStore
	logger               Logger
	globalIgnoreRetained bool
}

// New builds a Pipeline. templates may be nil when no route uses named
// templates.
func New(helpers *helperfn.Registry, targets Targeter, templates TemplateStore, logger Logger, globalIgnoreRetained bool) *Pipeline {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pipeline{
		helpers:              helpers,
		targets:              targets,
		templates:            templates,
		logger:               logger,
		globalIgnoreRetained: globalIgnoreRetained,
	}
}

// Process evaluates r against msg, returning one Job per resolved
// target. No error reaches the caller: a failing helper function is
// logged and processing continues (a failing filter_fn lets the message
// through), and an invalid target reference drops only that target. The
// message is dropped when it is retained and the route ignores retained
// messages, when filter_fn or a format function suppresses it, or when no
// target resolves.
func (p *Pipeline) Process(r *route.Route, msg Message) []Job {
	// Stage 1: retained filter.
	if msg.Retained && r.IgnoresRetained(p.globalIgnoreRetained) {
		p.logger.Debug("dropping retained message", "route", r.Name, "topic", msg.Topic)
		return nil
	}

	// Stage 2: build base context.
	ctx := buildBaseContext(msg)

	// Stage 3: payload decode (never fatal).
	decodePayload(ctx, msg.Payload)

	// Stage 4: filter_fn, fail-safe (error => deliver).
	if r.FilterFn != "" {
		fn, ok := p.helpers.Filter(r.FilterFn)
		if !ok {
			p.logger.Warn("filter function not registered", "route", r.Name, "function", r.FilterFn)
		} else {
			drop, err := fn(msg.Topic, msg.Payload, r.Name, ctx)
			if err != nil {
				p.logger.Warn("filter function failed, delivering message", "route", r.Name, "function", r.FilterFn, "error", err)
			} else if drop {
				p.logger.Debug("filter dropped message", "route", r.Name, "topic", msg.Topic)
				return nil
			}
		}
	}

	// Stage 5: datamap_fn.
	if r.DataMapFn != "" {
		fn, ok := p.helpers.DataMap(r.DataMapFn)
		if !ok {
			p.logger.Warn("datamap function not registered", "route", r.Name, "function", r.DataMapFn)
		} else {
			extra, err := fn(msg.Topic, ctx)
			if err != nil {
				p.logger.Warn("datamap function failed, continuing with partial context", "route", r.Name, "function", r.DataMapFn, "error", err)
			} else {
				for k, v := range extra {
					ctx[k] = v
				}
			}
		}
	}

	// Stage 7: format and image (stage 6, alldata_fn, runs per target below).
	body, err := p.formatBody(r, ctx, msg.Payload)
	if err != nil {
		if errors.Is(err, errSuppressed) {
			p.logger.Debug("format function suppressed message", "route", r.Name, "topic", msg.Topic)
			return nil
		}
		p.logger.Warn("format stage failed, dropping message", "route", r.Name, "error", err)
		return nil
	}
	image := p.resolveImage(r, ctx)

	// Stage 8: target expansion, with per-target alldata_fn augmentation.
	targets := p.targets.Expand(r, msg.Topic, ctx)
	if len(targets) == 0 {
		p.logger.Debug("no targets resolved for message", "route", r.Name, "topic", msg.Topic)
		return nil
	}

	jobs := make([]Job, 0, len(targets))
	for _, t := range targets {
		targetCtx := p.applyAllData(r, msg.Topic, ctx)
		jobs = append(jobs, Job{
			ID:        NewJobID(),
			Target:    t,
			RouteName: r.Name,
			Topic:     msg.Topic,
			Body:      body,
			Payload:   msg.Payload,
			Image:     image,
			Context:   targetCtx,
			Priority:  r.Priority,
		})
	}
	return jobs
}

func (p *Pipeline) applyAllData(r *route.Route, topic string, ctx map[string]any) map[string]any {
	out := snapshot(ctx)
	if r.AllDataFn == "" {
		return out
	}

	fn, ok := p.helpers.AllData(r.AllDataFn)
	if !ok {
		p.logger.Warn("alldata function not registered", "route", r.Name, "function", r.AllDataFn)
		return out
	}
	extra, err := fn(topic, out)
	if err != nil {
		p.logger.Warn("alldata function failed, continuing without it", "route", r.Name, "function", r.AllDataFn, "error", err)
		return out
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
