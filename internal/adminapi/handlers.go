package adminapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/target"
)

// handleHealth reports server liveness; unauthenticated, used by
// orchestration and monitoring probes.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}

// routeView is the read-only projection of a loaded route returned by
// GET /routes.
type routeView struct {
	Name         string `json:"name"`
	TopicPattern string `json:"topic_pattern"`
	Priority     int    `json:"priority"`
	Template     string `json:"template,omitempty"`
}

// handleListRoutes lists every loaded route.
func (s *Server) handleListRoutes(w http.ResponseWriter, _ *http.Request) {
	routes := s.routes.All()
	out := make([]routeView, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeView{Name: r.Name, TopicPattern: r.TopicPattern, Priority: r.Priority, Template: r.Template})
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": out})
}

// serviceView is the read-only projection of a configured service and
// its declared targets returned by GET /services.
type serviceView struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Targets []string `json:"targets"`
}

// handleListServices lists every configured service and its target names.
func (s *Server) handleListServices(w http.ResponseWriter, _ *http.Request) {
	out := make([]serviceView, 0, len(s.services))
	for name, sc := range s.services {
		targets := make([]string, 0, len(sc.Targets))
		for t := range sc.Targets {
			targets = append(targets, t)
		}
		out = append(out, serviceView{Name: name, Kind: sc.Kind, Targets: targets})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

// handleQueueDepths reports the current queue depth for every target
// that has had at least one Job enqueued.
func (s *Server) handleQueueDepths(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queue_depths": s.dispatcher.QueueDepths()})
}

// handleRecentDeliveries lists the most recent delivery outcomes,
// bounded by an optional ?limit= query parameter.
func (s *Server) handleRecentDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"deliveries": []any{}})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load recent deliveries", "error", err)
		writeInternalError(w, "failed to load recent deliveries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": records})
}

// fireTestRequest is the request body for POST /test-message.
type fireTestRequest struct {
	Service string         `json:"service"`
	Target  string         `json:"target"`
	Topic   string         `json:"topic"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Context map[string]any `json:"context"`
}

// fireTestResponse is the response body for POST /test-message.
type fireTestResponse struct {
	Delivered bool `json:"delivered"`
}

// handleFireTestMessage delivers a synthetic Job directly to one named
// (service, target) pair, bypassing routing, retry, and failover. It
// exists for manually exercising a plugin's configuration, parallel to
// firing a one-off test notification from the command line.
func (s *Server) handleFireTestMessage(w http.ResponseWriter, r *http.Request) {
	var req fireTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Service == "" || req.Target == "" {
		writeBadRequest(w, "service and target are required")
		return
	}
	if !s.plugins.HasTarget(req.Service, req.Target) {
		writeNotFound(w, "unknown service/target")
		return
	}

	job := pipeline.Job{
		ID:      pipeline.NewJobID(),
		Target:  target.Target{Service: req.Service, Name: req.Target},
		Topic:   req.Topic,
		Title:   req.Title,
		Body:    req.Body,
		Payload: []byte(req.Body),
		Context: req.Context,
	}

	delivered := s.plugins.Dispatch(job.Target, job)
	s.recordAudit(r.Context(), "test_message_fired", "plugin_target", job.Target.String(),
		map[string]any{"delivered": delivered})
	writeJSON(w, http.StatusOK, fireTestResponse{Delivered: delivered})
}
