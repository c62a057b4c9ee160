// Package request stamps every inbound request with a correlation ID and a
// request-scoped time.
package request

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"trustid/pkg/requestcontext"
)

// HeaderRequestID is propagated inbound and echoed on the response.
const HeaderRequestID = "X-Request-ID"

// Middleware reuses a caller-supplied X-Request-ID or mints one, and captures
// the request start time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
