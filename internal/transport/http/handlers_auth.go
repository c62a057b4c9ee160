package httptransport

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/platform/logger"
	"trustid/internal/session"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/httputil"
	"trustid/pkg/requestcontext"
)

// AuthFailedIndicator is appended to the login surface after a failed callback.
const AuthFailedIndicator = "auth_failed"

func (h *Handler) registerAuth(r chi.Router) {
	r.Get("/login", h.handleLoginSurface("login", domain.RoleCustomer))
	r.Get("/bank-login", h.handleLoginSurface("bank-login", domain.RoleEmployee))
	r.Get("/session", h.handleSession)
	r.Post("/auth/login", h.handleCredentialLogin)
	r.Get("/auth/google", h.handleProviderLogin)
	r.Get("/auth-callback", h.handleProviderCallback)
	r.Post("/logout", h.handleLogout)
}

type loginSurfaceResponse struct {
	Surface     string `json:"surface"`
	DefaultRole string `json:"default_role"`
	Error       string `json:"error,omitempty"`
	Pending     bool   `json:"is_loading"`
}

// handleLoginSurface renders the login form state. A signed-in visitor is sent
// to their home instead.
func (h *Handler) handleLoginSurface(surface string, role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := h.auth.Session()
		if decision := session.GuardAnonymous(current.Role()); !decision.Allowed {
			http.Redirect(w, r, decision.Redirect, http.StatusFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, loginSurfaceResponse{
			Surface:     surface,
			DefaultRole: string(role),
			Error:       r.URL.Query().Get("error"),
			Pending:     current.Pending,
		})
	}
}

func (h *Handler) handleSession(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.auth.Session())
}

type credentialLoginRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	User     domain.Identity `json:"user"`
	Redirect string          `json:"redirect"`
}

func (h *Handler) handleCredentialLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.DecodeJSON[credentialLoginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleCustomer
	}

	identity, err := h.auth.LoginWithCredentials(ctx, req.Email, role)
	if err != nil {
		h.logger.Info("credential login failed",
			zap.String("request_id", requestcontext.RequestID(ctx)),
			zap.String("email", logger.MaskEmail(req.Email)),
			zap.String("code", string(dErrors.CodeOf(err))),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{User: identity, Redirect: identity.Role.Home()})
}

// handleProviderLogin sends the browser to the identity provider. Control
// comes back at /auth-callback.
func (h *Handler) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	loginURL, err := h.auth.BeginProviderLogin(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

func (h *Handler) handleProviderCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.CompleteProviderLogin(r.Context(), r.URL.Query())
	if err != nil {
		h.logger.Info("provider callback rejected",
			zap.String("request_id", requestcontext.RequestID(r.Context())),
			zap.Error(err),
		)
		target := session.LoginPath + "?" + url.Values{"error": {AuthFailedIndicator}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	http.Redirect(w, r, identity.Role.Home(), http.StatusFound)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}
