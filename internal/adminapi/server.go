package adminapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad/warnbridge/internal/audit"
	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/dispatch"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/route"
	"github.com/nerrad/warnbridge/internal/target"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Logger defines the logging interface used by the admin API.
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

// Dispatcher is the subset of *dispatch.Dispatcher the admin API needs;
// satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Enqueue(job pipeline.Job)
	QueueDepths() map[string]int
}

// Plugins is the subset of *plugin.Registry the admin API needs to
// validate and fire a test message against a loaded target.
type Plugins interface {
	HasTarget(service, targetName string) bool
	Dispatch(t target.Target, job pipeline.Job) bool
}

// History is the subset of *history.Store the admin API needs to list
// recent delivery outcomes.
type History interface {
	Recent(ctx context.Context, limit int) ([]dispatch.DeliveryRecord, error)
}

// Authenticator is the subset of *auth.Authenticator the admin API needs
// to issue and verify access tokens for the single operator account.
type Authenticator interface {
	Login(username, password string) (string, error)
	Verify(token string) (string, error)
}

// Audit is the subset of *audit.SQLiteRepository the admin API needs to
// record and list operator-activity entries. Nil-safe: a nil Audit
// disables both recording and the /audit endpoint's history rather than
// failing requests.
type Audit interface {
	Create(ctx context.Context, log *audit.AuditLog) error
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// Deps holds the dependencies required by the admin API server.
type Deps struct {
	Config      config.APIConfig
	Logger      Logger
	Routes      *route.Registry
	Services    map[string]config.ServiceConfig
	Plugins     Plugins
	Dispatcher  Dispatcher
	History     History
	Auth        Authenticator
	Audit       Audit
	ExternalHub *Hub // if set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the admin HTTP/WebSocket API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      Logger
	routes      *route.Registry
	services    map[string]config.ServiceConfig
	plugins     Plugins
	dispatcher  Dispatcher
	history     History
	auth        Authenticator
	audit       Audit
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	tickets     *ticketStore
	cancel      context.CancelFunc
}

// New creates a new admin API server with the given dependencies. The
// server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Routes == nil {
		return nil, fmt.Errorf("route registry is required")
	}
	if deps.Plugins == nil {
		return nil, fmt.Errorf("plugin registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		routes:     deps.Routes,
		services:   deps.Services,
		plugins:    deps.Plugins,
		dispatcher: deps.Dispatcher,
		history:    deps.History,
		auth:       deps.Auth,
		audit:      deps.Audit,
		version:    deps.Version,
		tickets:    newTicketStore(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating one if Start() has
// not yet run and none was injected via Deps.ExternalHub. Used by the
// caller to wire the hub into the Dispatcher's Events sink before the
// Dispatcher is built.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.cfg.WebSocket, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections. It starts the WebSocket
// hub (unless one was injected) and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.cfg.WebSocket, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	go s.tickets.cleanLoop(srvCtx)

	router := s.buildRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin API server error", "error", err)
		}
	}()

	s.logger.Info("admin API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the admin API server, waiting for
// in-flight requests to complete before forcefully closing connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("admin API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down admin API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the admin API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("admin API health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("admin API server not started")
	}
	return nil
}
