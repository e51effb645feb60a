package route

import (
	"fmt"
	"sort"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/match"
)

// Logger defines the logging interface used by the Registry.
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

// Registry holds every loaded Route and resolves incoming topics to the
// routes that match, in configuration-declaration order.
//
// Built once from configuration and never mutated afterward; all public
// methods are safe for concurrent use without further locking.
type Registry struct {
	routes  map[string]*Route
	matcher *match.Matcher[*Route]
	logger  Logger
}

// NewRegistry builds a Registry from every route declared in cfg.
//
// When cfg.Defaults.StrictReferences is false (the default), a route with
// an unresolved static target reference is logged and skipped rather than
// failing the whole load; config.Load already enforces strict mode as a
// fatal error before a Registry is ever constructed, so by the time this
// runs any remaining unresolved reference is, by definition, one lenient
// mode has chosen to tolerate.
func NewRegistry(cfg *config.Config, logger Logger) (*Registry, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	reg := &Registry{
		routes:  make(map[string]*Route, len(cfg.Routes)),
		matcher: match.New[*Route](),
		logger:  logger,
	}

	for _, name := range routeNamesInOrder(cfg) {
		rc := cfg.Routes[name]
		if !cfg.Defaults.StrictReferences {
			if errs := config.ValidateStaticTargetRefs(rc.Targets, cfg.Services); len(errs) > 0 {
				for _, err := range errs {
					logger.Warn("skipping route with unresolved target reference", "route", name, "error", err)
				}
				continue
			}
		}

		r := fromConfig(name, rc)
		if _, err := reg.matcher.Subscribe(r.TopicPattern, r); err != nil {
			logger.Warn("skipping route with invalid topic pattern", "route", name, "error", err)
			continue
		}
		reg.routes[name] = r
	}

	return reg, nil
}

// routeNamesInOrder returns cfg.Routes' keys in the order Subscribe calls
// must happen in for Match() to honor configuration-declaration order
// among equally-matching routes. Uses cfg.RouteOrder (populated by
// config.Load from the source YAML's key order) when it names exactly the
// routes present in cfg.Routes; otherwise falls back to a sorted order so
// results are at least deterministic, for Configs built directly in Go
// (tests) rather than decoded from YAML.
func routeNamesInOrder(cfg *config.Config) []string {
	if len(cfg.RouteOrder) == len(cfg.Routes) {
		ordered := true
		for _, name := range cfg.RouteOrder {
			if _, ok := cfg.Routes[name]; !ok {
				ordered = false
				break
			}
		}
		if ordered {
			return cfg.RouteOrder
		}
	}

	names := make([]string, 0, len(cfg.Routes))
	for name := range cfg.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns every route whose topic_pattern matches topic, in
// configuration-declaration order.
func (reg *Registry) Match(topic string) []*Route {
	return reg.matcher.Match(topic)
}

// Get returns a named route.
func (reg *Registry) Get(name string) (*Route, error) {
	r, ok := reg.routes[name]
	if !ok {
		return nil, fmt.Errorf("route %q not found", name)
	}
	return r, nil
}

// Len returns the number of loaded routes.
func (reg *Registry) Len() int {
	return len(reg.routes)
}

// All returns every loaded route, in no particular order.
func (reg *Registry) All() []*Route {
	out := make([]*Route, 0, len(reg.routes))
	for _, r := range reg.routes {
		out = append(out, r)
	}
	return out
}
