// Package verifier is a stand-in for the upstream verification service. It
// answers the credential login and provider redirect calls the portal makes,
// and completes the Google OAuth round trip back to the portal callback.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"trustid/internal/platform/config"
	"trustid/internal/platform/logger"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/httputil"
	"trustid/pkg/platform/middleware/request"
)

const (
	// GoogleUserInfoURL returns the OpenID profile of the token holder.
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	tokenIssuer       = "trustid-mock-verifier"
	callbackPath      = "/auth-callback"
	failedLoginPath   = "/login?error=auth_failed"
	providerRoleClaim = "customer"
)

var googleScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

type Server struct {
	cfg         config.VerifierConfig
	tokens      *TokenIssuer
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	states      *stateSet
	logger      *zap.Logger
}

type Option func(*Server)

// WithGoogleEndpoint replaces the Google authorization and token endpoints.
func WithGoogleEndpoint(ep oauth2.Endpoint) Option {
	return func(s *Server) {
		s.oauth.Endpoint = ep
	}
}

func WithUserInfoURL(u string) Option {
	return func(s *Server) {
		s.userInfoURL = u
	}
}

// WithHTTPClient sets the client used for the code exchange and profile fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithClock sets the clock used to expire OAuth state values.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.states.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cfg config.VerifierConfig, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		tokens: NewTokenIssuer(cfg.JWTSigningKey, tokenIssuer, cfg.TokenTTL),
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Endpoint:     endpoints.Google,
			Scopes:       googleScopes,
		},
		userInfoURL: GoogleUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		states:      newStateSet(clock.New()),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(request.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/auth/login", s.handleLogin)
	r.Get("/auth/google", s.handleGoogleLogin)
	r.Get("/auth/callback", s.handleGoogleCallback)
	return r
}

type loginRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[loginRequest](r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "email and role are required")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Role == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email and role are required")
		return
	}

	id := UserID(req.Email)
	token, err := s.tokens.Issue(id, req.Email, req.Role)
	if err != nil {
		s.logger.Error("sign token", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.logger.Info("mock login",
		zap.String("email", logger.MaskEmail(req.Email)),
		zap.String("role", req.Role),
	)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		ID:    id,
		Name:  DisplayName(req.Email),
		Email: req.Email,
		Role:  req.Role,
		Token: token,
	})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.GoogleClientID == "" || s.cfg.GoogleClientSecret == "" {
		writeDetail(w, http.StatusInternalServerError, "Google OAuth credentials not configured")
		return
	}
	loginURL := s.oauth.AuthCodeURL(s.states.issue(),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"login_url": loginURL})
}

type googleProfile struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// handleGoogleCallback exchanges the authorization code, reads the profile and
// sends the browser to the portal callback with the identity claims. Every
// failure lands on the portal login page with the auth_failed indicator.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	profile, err := s.exchange(r)
	if err != nil {
		s.logger.Warn("google callback failed", zap.Error(err))
		http.Redirect(w, r, frontend+failedLoginPath, http.StatusTemporaryRedirect)
		return
	}

	claims := url.Values{
		"id":    {profile.Subject},
		"name":  {profile.Name},
		"email": {profile.Email},
		"role":  {providerRoleClaim},
	}
	http.Redirect(w, r, frontend+callbackPath+"?"+claims.Encode(), http.StatusTemporaryRedirect)
}

func (s *Server) exchange(r *http.Request) (googleProfile, error) {
	if !s.states.consume(r.URL.Query().Get("state")) {
		return googleProfile{}, dErrors.New(dErrors.CodeInvalidState, "oauth state unknown or expired")
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		return googleProfile{}, dErrors.New(dErrors.CodeMissingClaims, "authorization code missing")
	}
	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, s.httpClient)

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return googleProfile{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "code exchange failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return googleProfile{}, dErrors.Wrap(err, dErrors.CodeInternal, "build profile request")
	}
	resp, err := s.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return googleProfile{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "profile request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, dErrors.New(dErrors.CodeProviderUnavailable,
			fmt.Sprintf("profile request returned %d", resp.StatusCode))
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return googleProfile{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "decode profile")
	}
	if profile.Subject == "" || profile.Email == "" {
		return googleProfile{}, dErrors.New(dErrors.CodeMissingClaims, "profile missing sub or email")
	}
	return profile, nil
}

// UserID derives a stable mock identifier from an email address.
func UserID(email string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(email)))
	return fmt.Sprintf("user_%d", h.Sum32()%10000)
}

// DisplayName is the local part of email with the first letter upper-cased and
// the rest lower-cased.
func DisplayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if local == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(first)) + strings.ToLower(local[size:])
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	httputil.WriteJSON(w, status, map[string]string{"detail": detail})
}
