// Package httptransport is the thin presentation surface over the auth service
// and the verification engine. Handlers forward intents and render core state
// as JSON; they hold no business rules.
package httptransport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/session"
	"trustid/internal/workflow"
	"trustid/pkg/platform/audit"
	"trustid/pkg/platform/middleware/metadata"
	"trustid/pkg/platform/middleware/request"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks AuthService

// AuthService is the authentication surface the handlers drive.
type AuthService interface {
	LoginWithCredentials(ctx context.Context, email string, role domain.Role) (domain.Identity, error)
	BeginProviderLogin(ctx context.Context) (string, error)
	CompleteProviderLogin(ctx context.Context, query url.Values) (domain.Identity, error)
	Logout(ctx context.Context) error
	Session() session.Session
}

// Workflow is the verification engine surface.
type Workflow interface {
	Start(ctx context.Context, principal domain.Identity, input workflow.CaseInput) (workflow.CaseHandle, error)
	Observe(handle workflow.CaseHandle) (<-chan domain.CaseSnapshot, error)
	Cancel(ctx context.Context, handle workflow.CaseHandle) error
	Get(handle workflow.CaseHandle) (domain.VerificationCase, error)
	Latest(subjectID string) (domain.VerificationCase, bool)
	Plan() []workflow.StagePlan
}

// AuditReader backs the employee view.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	auth     AuthService
	workflow Workflow
	audit    AuditReader
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

type Option func(*Handler)

func WithAuditReader(a AuditReader) Option {
	return func(h *Handler) {
		h.audit = a
	}
}

// WithGatherer exposes metrics from g at /metrics. Defaults to the global
// registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func New(auth AuthService, wf Workflow, opts ...Option) *Handler {
	h := &Handler{
		auth:     auth,
		workflow: wf,
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires every route. Unknown paths go back to the root, which sends
// the visitor to the login surface.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/", redirectTo(session.LoginPath))
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	h.registerAuth(r)

	r.Group(func(r chi.Router) {
		r.Use(h.requireRole(domain.RoleCustomer))
		h.registerKYC(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.requireRole(domain.RoleEmployee))
		r.Get("/admin", h.handleAdmin)
	})

	r.NotFound(redirectTo("/"))
	return r
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

type principalKey struct{}

// requireRole applies the route guard and hands the authenticated identity to
// the handler through the request context.
func (h *Handler) requireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := h.auth.Session()
			decision := session.Guard(current.Role(), role)
			if !decision.Allowed {
				h.logger.Debug("route guard redirect",
					zap.String("path", r.URL.Path),
					zap.String("role", current.Role().String()),
					zap.String("redirect", decision.Redirect),
				)
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, *current.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principal(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(principalKey{}).(domain.Identity)
	return identity
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
