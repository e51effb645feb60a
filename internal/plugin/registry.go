package plugin

import (
	"fmt"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/target"
)

type serviceInstance struct {
	plugin  Plugin
	ctx     *ServiceContext
	targets map[string][]any
}

// Registry holds the loaded service plugins named in configuration and
// exposes a synchronous Dispatch to queue workers.
//
// Built once at startup (each service's Init hook runs exactly once);
// read-only and safe for concurrent use by every queue worker afterward.
type Registry struct {
	services map[string]serviceInstance
	logger   Logger
}

// NewRegistry loads every declared service against plugins, a table of
// available plugin implementations keyed by service kind, calling each
// service's Init hook exactly once.
func NewRegistry(services map[string]config.ServiceConfig, plugins map[string]Plugin, logger Logger, version string) (*Registry, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	reg := &Registry{
		services: make(map[string]serviceInstance, len(services)),
		logger:   logger,
	}

	for name, sc := range services {
		p, ok := plugins[sc.Kind]
		if !ok {
			return nil, fmt.Errorf("service %q: no plugin registered for kind %q", name, sc.Kind)
		}

		ctx := &ServiceContext{Logger: logger, Version: version, Options: sc.Options}
		if err := p.Init(ctx); err != nil {
			return nil, fmt.Errorf("service %q: init failed: %w", name, err)
		}

		reg.services[name] = serviceInstance{plugin: p, ctx: ctx, targets: sc.Targets}
	}

	return reg, nil
}

// Dispatch delivers job to t's plugin. A panic inside the plugin is
// recovered and treated as a failed delivery; it never escapes to the
// calling worker.
func (r *Registry) Dispatch(t target.Target, job pipeline.Job) (outcome bool) {
	svc, ok := r.services[t.Service]
	if !ok {
		r.logger.Error("dispatch to unknown service", "service", t.Service)
		return false
	}
	addrs, ok := svc.targets[t.Name]
	if !ok {
		r.logger.Error("dispatch to unknown target", "service", t.Service, "target", t.Name)
		return false
	}

	item := &DeliveryItem{
		Service:   t.Service,
		Target:    t.Name,
		Addrs:     addrs,
		Title:     job.Title,
		Body:      job.Body,
		Payload:   job.Payload,
		Image:     job.Image,
		Context:   job.Context,
		Topic:     job.Topic,
		RouteName: job.RouteName,
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("plugin panicked during deliver", "service", t.Service, "target", t.Name, "panic", rec)
			outcome = false
		}
	}()

	return svc.plugin.Deliver(svc.ctx, item)
}

// HasTarget reports whether (service, target) names a loaded service
// instance's declared target.
func (r *Registry) HasTarget(service, targetName string) bool {
	svc, ok := r.services[service]
	if !ok {
		return false
	}
	_, ok = svc.targets[targetName]
	return ok
}
