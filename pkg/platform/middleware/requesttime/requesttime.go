// Package requesttime pins a single "now" per request. Deadlines, version
// timestamps and audit events written while serving one request all agree.
package requesttime

import (
	"net/http"
	"time"

	"breachledger/pkg/requestcontext"
)

// Middleware stores the request start time, truncated to microseconds to
// match what the database persists.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		ctx := requestcontext.WithTime(r.Context(), now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
