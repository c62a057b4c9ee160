package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/platform/logger"
	dErrors "trustid/pkg/domain-errors"
)

// SubmitCredentials exchanges an email and requested role for an identity.
//
// Errors carry dErrors.CodeRejected when the service refused the credentials
// (or they were malformed locally) and dErrors.CodeUnreachable when the service
// could not produce an answer.
func (c *Client) SubmitCredentials(ctx context.Context, email string, role domain.Role) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if !govalidator.IsEmail(email) {
		return domain.Identity{}, dErrors.New(dErrors.CodeRejected, "email address is not valid")
	}
	parsed, ok := domain.ParseRole(string(role))
	if !ok {
		return domain.Identity{}, dErrors.New(dErrors.CodeRejected, fmt.Sprintf("unknown role %q", role))
	}

	resp, err := c.do(ctx, http.MethodPost, loginPath, credentialsRequest{Email: email, Role: string(parsed)})
	if err != nil {
		c.logger.Warn("credential login unreachable",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeUnreachable, "verification service unreachable")
	}

	switch {
	case resp.ok():
	case resp.status >= http.StatusBadRequest && resp.status < http.StatusInternalServerError:
		return domain.Identity{}, dErrors.New(dErrors.CodeRejected, resp.detail())
	default:
		return domain.Identity{}, dErrors.New(dErrors.CodeUnreachable,
			fmt.Sprintf("verification service answered %d", resp.status))
	}

	var record identityRecord
	if err := json.Unmarshal(resp.body, &record); err != nil {
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeUnreachable, "verification service answered an unreadable identity")
	}
	identity, ok := record.toIdentity()
	if !ok {
		return domain.Identity{}, dErrors.New(dErrors.CodeRejected, "verification service answered an incomplete identity")
	}
	return identity, nil
}

func (r identityRecord) toIdentity() (domain.Identity, bool) {
	role, ok := domain.ParseRole(r.Role)
	if !ok {
		return domain.Identity{}, false
	}
	identity := domain.Identity{
		ID:          strings.TrimSpace(r.ID),
		DisplayName: r.Name,
		Email:       strings.TrimSpace(r.Email),
		Role:        role,
	}
	return identity, identity.Valid()
}
