package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad/warnbridge/internal/adminapi"
	"github.com/nerrad/warnbridge/internal/audit"
	"github.com/nerrad/warnbridge/internal/auth"
	"github.com/nerrad/warnbridge/internal/broker/paho"
	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/dispatch"
	"github.com/nerrad/warnbridge/internal/helperfn"
	"github.com/nerrad/warnbridge/internal/history"
	"github.com/nerrad/warnbridge/internal/metrics"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/plugin"
	"github.com/nerrad/warnbridge/internal/plugin/builtin"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/scheduler"
	"github.com/nerrad/warnbridge/internal/target"
	"github.com/nerrad/warnbridge/internal/template"
)

// Logger defines the logging interface used throughout the supervisor
// and passed down to every component it constructs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// BuiltinPlugins maps a service's "kind" configuration value to the
// Plugin implementation that handles it. None of the builtin plugins
// self-register; this table is the one place that binds a kind string
// to a concrete type. Exported so cmd/warnbridge's plugin-test subcommand
// can build the same plugin.Registry Run does, without a service actually
// being started.
func BuiltinPlugins() map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		"log":  builtin.LogPlugin{},
		"file": builtin.FilePlugin{},
		"http": &builtin.HTTPPlugin{},
		"exec": builtin.ExecPlugin{},
	}
}

// Run builds every warnbridge component from cfg and blocks until ctx
// is cancelled, then tears everything down in reverse construction
// order. It is the single entry point cmd/warnbridge's run subcommand
// calls.
func Run(ctx context.Context, cfg *config.Config, logger Logger, version string) error {
	logger.Info("starting warnbridge", "version", version)

	historyDB, err := history.Open(ctx, history.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() {
		logger.Info("closing history database")
		if closeErr := historyDB.Close(); closeErr != nil {
			logger.Error("error closing history database", "error", closeErr)
		}
	}()

	if err := historyDB.Migrate(ctx); err != nil {
		return fmt.Errorf("running history migrations: %w", err)
	}
	historyStore := history.NewStore(historyDB, logger)
	logger.Info("history store ready", "path", cfg.Database.Path)

	reporter, err := metrics.NewReporter(metrics.Config{
		Enabled:       cfg.InfluxDB.Enabled,
		URL:           cfg.InfluxDB.URL,
		Token:         cfg.InfluxDB.Token,
		Org:           cfg.InfluxDB.Org,
		Bucket:        cfg.InfluxDB.Bucket,
		FlushInterval: cfg.InfluxDB.FlushInterval,
	}, logger)
	if err != nil {
		if !errors.Is(err, metrics.ErrDisabled) {
			return fmt.Errorf("starting metrics reporter: %w", err)
		}
		logger.Info("metrics reporter disabled")
	} else {
		defer func() {
			logger.Info("closing metrics reporter")
			if closeErr := reporter.Close(); closeErr != nil {
				logger.Error("error closing metrics reporter", "error", closeErr)
			}
		}()
		logger.Info("metrics reporter connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	templates, err := template.Load(cfg.Templates.Dir, logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	logger.Info("templates loaded", "count", templates.Len(), "dir", cfg.Templates.Dir)

	helpers := helperfn.NewRegistry()

	routes, err := route.NewRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("building route registry: %w", err)
	}
	logger.Info("routes loaded", "count", routes.Len())

	expander := target.NewExpander(cfg.Services, helpers, logger)

	plugins, err := plugin.NewRegistry(cfg.Services, BuiltinPlugins(), logger, version)
	if err != nil {
		return fmt.Errorf("building plugin registry: %w", err)
	}
	logger.Info("services initialised", "count", len(cfg.Services))

	authenticator := auth.NewAuthenticator(
		cfg.Security.AdminUser.Username,
		cfg.Security.AdminUser.PasswordHash,
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenTTL,
	)

	failoverTargets, err := resolveFailoverTargets(cfg.Failover.Targets)
	if err != nil {
		return fmt.Errorf("resolving failover targets: %w", err)
	}

	// The hub is created ahead of the Dispatcher, whose events sink it
	// fills, and ahead of the admin Server, which is wired to the same
	// hub via Deps.ExternalHub so both sides broadcast and serve the
	// same WebSocket clients.
	var events dispatch.Events
	var hub *adminapi.Hub
	if cfg.API.Enabled {
		hub = adminapi.NewHub(cfg.API.WebSocket, logger)
		events = hub
	}

	dispatcher := dispatch.New(
		dispatch.Defaults{
			QueueCapacity: cfg.Defaults.QueueCapacity,
			RetryLimit:    cfg.Defaults.RetryLimit,
			BackoffBase:   cfg.Defaults.BackoffBase,
		},
		routes,
		plugins,
		failoverTargets,
		logger,
		historyStore,
		reporterOrNil(reporter),
		events,
	)

	var admin *adminapi.Server
	if cfg.API.Enabled {
		admin, err = adminapi.New(adminapi.Deps{
			Config:      cfg.API,
			Logger:      logger,
			Routes:      routes,
			Services:    cfg.Services,
			Plugins:     plugins,
			Dispatcher:  dispatcher,
			History:     historyStore,
			Auth:        authenticator,
			Audit:       audit.NewSQLiteRepository(historyDB.DB),
			ExternalHub: hub,
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("building admin API: %w", err)
		}
	}

	pl := pipeline.New(helpers, expander, templates, logger, cfg.Defaults.IgnoreRetained || cfg.MQTT.SkipRetained)

	sched := scheduler.New(cfg, helpers, routes, pl, dispatcher, logger)
	sched.Start(ctx)
	defer sched.Wait()

	mqttClient, err := paho.Connect(paho.Config{
		Host:         cfg.MQTT.Broker.Host,
		Port:         cfg.MQTT.Broker.Port,
		TLS:          cfg.MQTT.Broker.TLS,
		ClientID:     cfg.MQTT.Broker.ClientID,
		Username:     cfg.MQTT.Auth.Username,
		Password:     cfg.MQTT.Auth.Password,
		QoS:          cfg.MQTT.QoS,
		InitialDelay: cfg.MQTT.Reconnect.InitialDelay,
		MaxDelay:     cfg.MQTT.Reconnect.MaxDelay,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		logger.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			logger.Error("error closing MQTT client", "error", closeErr)
		}
	}()

	mqttClient.SetOnConnect(func() { logger.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { logger.Warn("MQTT disconnected", "error", err) })

	inbound := newInboundHandler(routes, pl, dispatcher, logger)
	if err := mqttClient.Subscribe("#", byte(cfg.MQTT.QoS), inbound.handle); err != nil {
		return fmt.Errorf("subscribing to MQTT topics: %w", err)
	}
	logger.Info("MQTT connected and subscribed",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"qos", cfg.MQTT.QoS,
	)

	if admin != nil {
		if err := admin.Start(ctx); err != nil {
			return fmt.Errorf("starting admin API: %w", err)
		}
		defer func() {
			logger.Info("closing admin API")
			if closeErr := admin.Close(); closeErr != nil {
				logger.Error("error closing admin API", "error", closeErr)
			}
		}()
		logger.Info("admin API listening", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		logger.Info("admin API disabled")
	}

	logger.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	logger.Info("shutdown signal received, draining queues")

	dispatcher.Shutdown(context.Background(), cfg.Defaults.ShutdownGrace)

	logger.Info("warnbridge stopped")
	return nil
}

// reporterOrNil returns a dispatch.Metrics view of reporter, or nil when
// reporter itself is nil (metrics disabled). dispatch.New treats a nil
// Metrics the same as a no-op implementation.
func reporterOrNil(reporter *metrics.Reporter) dispatch.Metrics {
	if reporter == nil {
		return nil
	}
	return reporter
}

// resolveFailoverTargets parses every "service:target" reference in
// refs. config.Validate already rejected any malformed or unresolved
// reference before a Config reaches here, so a parse failure at this
// point would indicate a bug in that validation, not bad input.
func resolveFailoverTargets(refs []string) ([]target.Target, error) {
	out := make([]target.Target, 0, len(refs))
	for _, ref := range refs {
		parts := strings.SplitN(ref, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid failover target reference %q", ref)
		}
		out = append(out, target.Target{Service: parts[0], Name: parts[1]})
	}
	return out, nil
}
