package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"trustid/internal/domain"
	dErrors "trustid/pkg/domain-errors"
)

// Callback query parameters set by the provider redirect.
const (
	ClaimID    = "id"
	ClaimName  = "name"
	ClaimEmail = "email"
	ClaimRole  = "role"
)

// BeginProviderRedirect asks the verification service where the provider login
// starts. The caller navigates to the returned URL; the flow resumes later at
// the callback route with no local deadline.
func (c *Client) BeginProviderRedirect(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, providerPath, nil)
	if err != nil {
		c.logger.Warn("provider redirect unavailable", zap.Error(err))
		return "", dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "verification service unreachable")
	}
	if !resp.ok() {
		return "", dErrors.New(dErrors.CodeProviderUnavailable,
			fmt.Sprintf("verification service answered %d: %s", resp.status, resp.detail()))
	}

	var redirect providerRedirect
	if err := json.Unmarshal(resp.body, &redirect); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "unreadable provider redirect")
	}
	loginURL := strings.TrimSpace(redirect.LoginURL)
	if loginURL == "" {
		return "", dErrors.New(dErrors.CodeProviderUnavailable, "no provider login url")
	}
	if _, err := url.Parse(loginURL); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "malformed provider login url")
	}
	return loginURL, nil
}

// CompleteProviderCallback builds an identity from the callback query. It is
// pure: the same query always yields the same result.
func (c *Client) CompleteProviderCallback(query url.Values) (domain.Identity, error) {
	return IdentityFromCallback(query)
}

// IdentityFromCallback requires id, email and a known role; name is optional.
func IdentityFromCallback(query url.Values) (domain.Identity, error) {
	var missing []string
	id := strings.TrimSpace(query.Get(ClaimID))
	if id == "" {
		missing = append(missing, ClaimID)
	}
	email := strings.TrimSpace(query.Get(ClaimEmail))
	if email == "" {
		missing = append(missing, ClaimEmail)
	}
	role, ok := domain.ParseRole(query.Get(ClaimRole))
	if !ok {
		missing = append(missing, ClaimRole)
	}
	if len(missing) > 0 {
		return domain.Identity{}, dErrors.New(dErrors.CodeMissingClaims,
			"callback missing "+strings.Join(missing, ", "))
	}
	return domain.Identity{
		ID:          id,
		DisplayName: query.Get(ClaimName),
		Email:       email,
		Role:        role,
	}, nil
}
