package middleware

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/xcontext"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/google/uuid"
)

type RequestIDMiddleware struct {
	IDFunc func(*http.Request) string
}

type RequestIDOption func(*RequestIDMiddleware)

// WithIDFunc overrides how request ids are generated.
func WithIDFunc(fn func(*http.Request) string) RequestIDOption {
	return func(m *RequestIDMiddleware) { m.IDFunc = fn }
}

// TrustIncoming reuses a caller-supplied X-Request-ID when present.
func TrustIncoming() RequestIDOption {
	return func(m *RequestIDMiddleware) {
		generate := m.IDFunc
		m.IDFunc = func(r *http.Request) string {
			if id := r.Header.Get(xhttp.XRequestID); id != "" {
				return id
			}
			return generate(r)
		}
	}
}

func RequestID(opts ...RequestIDOption) func(http.Handler) http.Handler {
	middleware := &RequestIDMiddleware{
		IDFunc: func(_ *http.Request) string {
			return uuid.NewString()
		},
	}

	for _, opt := range opts {
		opt(middleware)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := middleware.IDFunc(r)
			ctx := xcontext.WithRequestID(r.Context(), id)
			xhttp.SetHeaderRequestID(w, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
