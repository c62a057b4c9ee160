package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustid/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("domain codes map to statuses", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodeRejected:            http.StatusUnauthorized,
			dErrors.CodeUnreachable:         http.StatusBadGateway,
			dErrors.CodeProviderUnavailable: http.StatusServiceUnavailable,
			dErrors.CodeMissingClaims:       http.StatusBadRequest,
			dErrors.CodeInvalidState:        http.StatusConflict,
			dErrors.CodeInvalidInput:        http.StatusBadRequest,
			dErrors.CodeNotFound:            http.StatusNotFound,
		}
		for code, status := range cases {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "detail"))
			assert.Equal(t, status, w.Code, code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, string(code), body["error"])
			assert.Equal(t, "detail", body["error_description"])
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
	got, err := DecodeJSON[payload](r)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","extra":1}`))
	_, err = DecodeJSON[payload](r)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	_, err = DecodeJSON[payload](r)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
