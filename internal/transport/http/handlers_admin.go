package httptransport

import (
	"net/http"
	"strconv"

	"trustid/internal/domain"
	"trustid/pkg/platform/audit"
	"trustid/pkg/platform/httputil"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type adminResponse struct {
	User   domain.Identity `json:"user"`
	Events []audit.Event   `json:"events"`
}

// handleAdmin shows the reviewing employee the most recent audit trail.
func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	resp := adminResponse{User: principal(r.Context()), Events: []audit.Event{}}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxAuditLimit)
		}
	}
	if h.audit != nil {
		events, err := h.audit.ListRecent(r.Context(), limit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if events != nil {
			resp.Events = events
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
