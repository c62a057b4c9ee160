package verifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustid/pkg/domain-errors"
)

var issuer = NewTokenIssuer("test-signing-key", "test-issuer", time.Hour)

func Test_IssueToken(t *testing.T) {
	token, err := issuer.Issue("user_42", "a@b.com", "customer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user_42", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_Invalid(t *testing.T) {
	_, err := issuer.Validate("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeRejected, "invalid token"))
}

func Test_ValidateToken_Expired(t *testing.T) {
	expired := NewTokenIssuer("test-signing-key", "test-issuer", -time.Hour)
	token, err := expired.Issue("user_42", "a@b.com", "customer")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeRejected, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewTokenIssuer("other-key", "test-issuer", time.Hour)
	token, err := other.Issue("user_42", "a@b.com", "customer")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeRejected, "invalid token"))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewTokenIssuer("test-signing-key", "someone-else", time.Hour)
	token, err := other.Issue("user_42", "a@b.com", "customer")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRejected))
}
