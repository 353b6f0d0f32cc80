package middleware

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/xcontext"
)

// ShutdownContext marks the request context when the server base context has
// already been cancelled.
func ShutdownContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ctx.Err() != nil {
			r = r.WithContext(xcontext.SetShutdownInProgress(ctx, true))
		}
		next.ServeHTTP(w, r)
	})
}
