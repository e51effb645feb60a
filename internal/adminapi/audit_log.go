package adminapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad/warnbridge/internal/audit"
)

// recordAudit writes one audit entry if an Audit repository was wired in;
// a write failure is logged, not propagated, for the same reason
// internal/history.Store swallows its own write errors: recording an
// admin action must never fail the action itself.
func (s *Server) recordAudit(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	log := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     "admin_api",
		Details:    details,
	}
	if err := s.audit.Create(ctx, log); err != nil {
		s.logger.Error("failed to write audit log", "action", action, "error", err)
	}
}

// handleListAudit lists recorded operator-activity entries, filterable by
// ?action= and paginated by ?limit=&offset=.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, audit.ListResult{Logs: []audit.AuditLog{}})
		return
	}

	filter := audit.Filter{Action: r.URL.Query().Get("action")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Offset = parsed
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
