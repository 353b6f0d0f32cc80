package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

// APIKeyAuth rejects requests that do not carry one of keys in the X-API-Key
// header or as a bearer token. An empty key set disables the check.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := r.Header.Get(xhttp.XAPIKey)
			if key == "" {
				key, _ = xhttp.BearerToken(r)
			}
			if key == "" {
				xslog.FromContext(ctx).WarnContext(ctx, "missing API key", xslog.RequestPath(r))
				xerrors.WriteError(ctx, w, xerrors.Unauthorized(xerrors.WithMessage("missing API key")))
				return
			}

			if !validKey(keys, key) {
				xslog.FromContext(ctx).WarnContext(ctx, "invalid API key", xslog.RequestPath(r))
				xerrors.WriteError(ctx, w, xerrors.Unauthorized(xerrors.WithMessage("invalid API key")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validKey(keys []string, key string) bool {
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
	}
	return ok == 1
}
