package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Post("/auth/login", s.handleLogin)

	// Ticket-validated rather than bearer-validated: a browser cannot set
	// a custom header on a WebSocket upgrade request, so the ticket
	// obtained from POST /auth/ws-ticket (itself bearer-protected below)
	// substitutes for one. Consumed inside handleWebSocket.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/auth/ws-ticket", s.handleWSTicket)
		r.Get("/routes", s.handleListRoutes)
		r.Get("/services", s.handleListServices)
		r.Get("/queue-depths", s.handleQueueDepths)
		r.Get("/deliveries", s.handleRecentDeliveries)
		r.Get("/audit", s.handleListAudit)
		r.Post("/test-message", s.handleFireTestMessage)
	})

	return r
}
