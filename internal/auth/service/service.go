// Package service joins the identity adapter to the session manager. It owns
// the pending flag around every authentication attempt and records the audit
// trail for logins and logouts.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/platform/metrics"
	"trustid/internal/session"
	"trustid/pkg/platform/audit"
	dErrors "trustid/pkg/domain-errors"
)

// Login methods, used as metric labels and audit detail.
const (
	MethodCredentials = "credentials"
	MethodProvider    = "provider"
)

// IdentityProvider authenticates a principal. Errors carry domain codes.
type IdentityProvider interface {
	SubmitCredentials(ctx context.Context, email string, role domain.Role) (domain.Identity, error)
	BeginProviderRedirect(ctx context.Context) (string, error)
	CompleteProviderCallback(query url.Values) (domain.Identity, error)
}

// SessionManager is the sole writer of the session.
type SessionManager interface {
	CompleteLogin(ctx context.Context, identity domain.Identity) error
	Logout(ctx context.Context) error
	Current() session.Session
	BeginAuth() (done func())
}

type Service struct {
	identities IdentityProvider
	sessions   SessionManager
	auditor    audit.Emitter
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

type Option func(*Service)

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(identities IdentityProvider, sessions SessionManager, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		sessions:   sessions,
		auditor:    audit.Discard,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the current session state.
func (s *Service) Session() session.Session {
	return s.sessions.Current()
}

// LoginWithCredentials exchanges email and role for an identity and makes it
// the session. On any failure the session is unchanged and the caller may
// retry at once.
func (s *Service) LoginWithCredentials(ctx context.Context, email string, role domain.Role) (domain.Identity, error) {
	done := s.sessions.BeginAuth()
	defer done()

	identity, err := s.identities.SubmitCredentials(ctx, email, role)
	if err != nil {
		s.loginFailed(ctx, MethodCredentials, err)
		return domain.Identity{}, err
	}
	return s.establish(ctx, MethodCredentials, identity)
}

// BeginProviderLogin returns the provider URL the caller must navigate to. The
// login completes later through CompleteProviderLogin.
func (s *Service) BeginProviderLogin(ctx context.Context) (string, error) {
	done := s.sessions.BeginAuth()
	defer done()

	loginURL, err := s.identities.BeginProviderRedirect(ctx)
	if err != nil {
		s.loginFailed(ctx, MethodProvider, err)
		return "", err
	}
	return loginURL, nil
}

// CompleteProviderLogin turns callback claims into the session. Missing claims
// leave the session unchanged.
func (s *Service) CompleteProviderLogin(ctx context.Context, query url.Values) (domain.Identity, error) {
	done := s.sessions.BeginAuth()
	defer done()

	identity, err := s.identities.CompleteProviderCallback(query)
	if err != nil {
		s.loginFailed(ctx, MethodProvider, err)
		return domain.Identity{}, err
	}
	return s.establish(ctx, MethodProvider, identity)
}

// Logout ends the session. Calling it while signed out still erases the
// durable record.
func (s *Service) Logout(ctx context.Context) error {
	current := s.sessions.Current()
	if err := s.sessions.Logout(ctx); err != nil {
		s.logger.Error("session erase failed", zap.Error(err))
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not clear session")
	}
	if current.Identity == nil {
		return nil
	}

	s.metrics.IncrementLogouts()
	s.emit(ctx, audit.NewEvent(audit.EventLoggedOut, current.Identity.ID))
	s.logger.Info("user logged out", zap.String("user_id", current.Identity.ID))
	return nil
}

func (s *Service) establish(ctx context.Context, method string, identity domain.Identity) (domain.Identity, error) {
	if err := s.sessions.CompleteLogin(ctx, identity); err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeInternal, "could not persist session")
		s.loginFailed(ctx, method, wrapped)
		return domain.Identity{}, wrapped
	}

	s.metrics.ObserveLogin(method, nil)
	ev := audit.NewEvent(audit.EventLoginSucceeded, identity.ID)
	ev.Method = method
	s.emit(ctx, ev)
	s.logger.Info("login succeeded",
		zap.String("method", method),
		zap.String("user_id", identity.ID),
		zap.String("role", identity.Role.String()),
	)
	return identity, nil
}

func (s *Service) loginFailed(ctx context.Context, method string, err error) {
	s.metrics.ObserveLogin(method, err)
	ev := audit.NewEvent(audit.EventLoginFailed, "")
	ev.Method = method
	ev.Reason = string(dErrors.CodeOf(err))
	s.emit(ctx, ev)
	s.logger.Warn("login failed",
		zap.String("method", method),
		zap.String("code", ev.Reason),
		zap.Error(err),
	)
}

func (s *Service) emit(ctx context.Context, ev audit.Event) {
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.Warn("audit emit failed", zap.String("action", ev.Action), zap.Error(err))
	}
}
