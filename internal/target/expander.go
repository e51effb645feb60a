package target

import (
	"fmt"
	"strings"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/textsubst"
)

// Target identifies exactly one dispatch queue: a service kind plus the
// target name within that service's configuration.
type Target struct {
	Service string
	Name    string
}

func (t Target) String() string { return t.Service + ":" + t.Name }

// Logger defines the logging interface used by the Expander.
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

// Expander resolves a route's targets_spec into concrete Targets,
// validating each against the set of services and target names declared
// in configuration.
type Expander struct {
	valid   map[string]map[string]bool
	helpers *helperfn.Registry
	logger  Logger
}

// NewExpander builds an Expander from the declared services.
func NewExpander(services map[string]config.ServiceConfig, helpers *helperfn.Registry, logger Logger) *Expander {
	if logger == nil {
		logger = noopLogger{}
	}
	valid := make(map[string]map[string]bool, len(services))
	for name, svc := range services {
		set := make(map[string]bool, len(svc.Targets))
		for t := range svc.Targets {
			set[t] = true
		}
		valid[name] = set
	}
	return &Expander{valid: valid, helpers: helpers, logger: logger}
}

// Expand resolves r's targets_spec against topic and ctx, returning the
// concrete, validated target list. Never returns an error for user-data
// problems; those are logged and the offending reference is dropped.
func (e *Expander) Expand(r *route.Route, topic string, ctx map[string]any) []Target {
	var refs []string

	switch r.Targets.Kind {
	case config.TargetsStatic:
		refs = r.Targets.Static

	case config.TargetsTemplate:
		refs = []string{textsubst.Interpolate(r.Targets.Template, ctx)}

	case config.TargetsComputed:
		fn, ok := e.helpers.TargetFunc(r.Targets.Function)
		if !ok {
			e.logger.Warn("target function not registered", "function", r.Targets.Function, "route", r.Name)
			return nil
		}
		result, err := fn(topic, ctx, r.Name, r.Targets)
		if err != nil {
			e.logger.Warn("target function failed", "function", r.Targets.Function, "route", r.Name, "error", err)
			return nil
		}
		refs = result

	default:
		e.logger.Error("route has unknown targets kind", "route", r.Name, "kind", r.Targets.Kind)
		return nil
	}

	var out []Target
	for _, ref := range refs {
		t, err := e.parseAndValidate(ref)
		if err != nil {
			e.logger.Warn("dropping invalid target reference", "ref", ref, "route", r.Name, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (e *Expander) parseAndValidate(ref string) (Target, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return Target{}, fmt.Errorf("invalid target reference %q (want service:target)", ref)
	}
	t := Target{Service: parts[0], Name: parts[1]}

	targets, ok := e.valid[t.Service]
	if !ok {
		return Target{}, fmt.Errorf("unknown service %q", t.Service)
	}
	if !targets[t.Name] {
		return Target{}, fmt.Errorf("unknown target %q in service %q", t.Name, t.Service)
	}
	return t, nil
}
