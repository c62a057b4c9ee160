package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustid/internal/auth/service"
	"trustid/internal/domain"
	"trustid/internal/identity"
	"trustid/internal/session"
	sessionfile "trustid/internal/session/store/file"
	"trustid/internal/workflow"
	dErrors "trustid/pkg/domain-errors"
)

func verificationService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "u1", "name": "A", "email": req.Email, "role": req.Role,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCredentialLoginThroughCompletedCase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srv := verificationService(t)

	store, err := sessionfile.New(dir)
	require.NoError(t, err)
	sessions := session.NewManager(store)
	sessions.Restore(ctx)

	auth := service.New(identity.NewClient(srv.URL, time.Second), sessions)
	user, err := auth.LoginWithCredentials(ctx, "a@b.com", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "u1", DisplayName: "A", Email: "a@b.com", Role: domain.RoleCustomer}, user)
	assert.True(t, auth.Session().Authenticated())
	assert.False(t, auth.Session().Pending)

	// Simulated restart: a fresh manager over the same directory.
	restartedStore, err := sessionfile.New(dir)
	require.NoError(t, err)
	restarted := session.NewManager(restartedStore).Restore(ctx)
	require.True(t, restarted.Authenticated())
	assert.Equal(t, user, *restarted.Identity)

	mock := clock.NewMock()
	engine := workflow.NewEngine(workflow.WithClock(mock))
	handle, err := engine.Start(ctx, *restarted.Identity, workflow.CaseInput{})
	require.NoError(t, err)
	snapshots, err := engine.Observe(handle)
	require.NoError(t, err)

	var last domain.CaseSnapshot
	dwells := []time.Duration{workflow.DefaultUploadingDwell, workflow.DefaultAnalyzingDwell, workflow.DefaultVerifyingDwell}
	for i := 0; ; i++ {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				assert.Equal(t, domain.StageCompleted, last.Stage)
				assert.Equal(t, 100, last.ProgressPercent)
				return
			}
			last = snap
			if i < len(dwells) {
				mock.Add(dwells[i])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("case stalled at %s", last.Stage)
		}
	}
}

func TestLogoutThenRestoreIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srv := verificationService(t)

	store, err := sessionfile.New(dir)
	require.NoError(t, err)
	sessions := session.NewManager(store)
	sessions.Restore(ctx)
	auth := service.New(identity.NewClient(srv.URL, time.Second), sessions)

	_, err = auth.LoginWithCredentials(ctx, "ops@bank.com", domain.RoleEmployee)
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx))
	require.NoError(t, auth.Logout(ctx))

	assert.False(t, session.NewManager(store).Restore(ctx).Authenticated())
}

func TestFailedCallbackKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	store, err := sessionfile.New(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewManager(store)
	sessions.Restore(ctx)
	auth := service.New(identity.NewClient("http://unused.invalid", time.Second), sessions)

	first, err := auth.CompleteProviderLogin(ctx, url.Values{"id": {"u1"}, "email": {"a@b.com"}, "role": {"customer"}})
	require.NoError(t, err)

	_, err = auth.CompleteProviderLogin(ctx, url.Values{"id": {"e9"}, "email": {"x@bank.com"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingClaims))
	require.NotNil(t, auth.Session().Identity)
	assert.Equal(t, first, *auth.Session().Identity)
}
