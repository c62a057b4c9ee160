package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/workflow"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/httputil"
)

func (h *Handler) registerKYC(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Post("/kyc/start", h.handleStartCase)
	r.Get("/kyc/cases/{caseID}", h.handleGetCase)
	r.Get("/kyc/cases/{caseID}/events", h.handleCaseEvents)
	r.Post("/kyc/cases/{caseID}/cancel", h.handleCancelCase)
}

type stageView struct {
	Stage       domain.Stage `json:"stage"`
	Progress    int          `json:"progress_percent"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

type dashboardResponse struct {
	User   domain.Identity          `json:"user"`
	Stages []stageView              `json:"stages"`
	Case   *domain.VerificationCase `json:"case,omitempty"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := principal(r.Context())
	resp := dashboardResponse{User: user}
	for _, p := range h.workflow.Plan() {
		resp.Stages = append(resp.Stages, stageView{
			Stage:       p.Stage,
			Progress:    p.Progress,
			Title:       p.Title,
			Description: p.Description,
		})
	}
	if c, ok := h.workflow.Latest(user.ID); ok {
		resp.Case = &c
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type startCaseResponse struct {
	CaseID string                  `json:"case_id"`
	Case   domain.VerificationCase `json:"case"`
	Events string                  `json:"events"`
}

func (h *Handler) handleStartCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var input workflow.CaseInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	handle, err := h.workflow.Start(ctx, principal(ctx), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.workflow.Get(handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, startCaseResponse{
		CaseID: string(handle),
		Case:   c,
		Events: fmt.Sprintf("/kyc/cases/%s/events", handle),
	})
}

// ownedCase resolves the route's case and hides cases of other subjects.
func (h *Handler) ownedCase(r *http.Request) (workflow.CaseHandle, domain.VerificationCase, error) {
	handle := workflow.CaseHandle(chi.URLParam(r, "caseID"))
	c, err := h.workflow.Get(handle)
	if err != nil {
		return "", domain.VerificationCase{}, err
	}
	if c.SubjectID != principal(r.Context()).ID {
		return "", domain.VerificationCase{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("case %s not found", handle))
	}
	return handle, c, nil
}

func (h *Handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	_, c, err := h.ownedCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCancelCase(w http.ResponseWriter, r *http.Request) {
	handle, _, err := h.ownedCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.workflow.Cancel(r.Context(), handle); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.workflow.Get(handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// handleCaseEvents streams snapshots as server-sent events until the case
// finishes or the client goes away.
func (h *Handler) handleCaseEvents(w http.ResponseWriter, r *http.Request) {
	handle, _, err := h.ownedCase(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}
	snapshots, err := h.workflow.Observe(handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				_, _ = fmt.Fprint(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error("encode snapshot", zap.Error(err))
				return
			}
			_, _ = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
