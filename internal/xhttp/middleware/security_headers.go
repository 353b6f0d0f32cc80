package middleware

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/xhttp"
)

// responses are JSON or a socket upgrade, never a page to render or cache.
var securityHeaders = [...]struct{ key, value string }{
	{xhttp.XContentTypeOpts, "nosniff"},
	{xhttp.XFrameOpts, "DENY"},
	{xhttp.XXSSProtection, "0"},
	{xhttp.ReferrerPolicy, "no-referrer"},
	{xhttp.ContentSecurity, "default-src 'none'; frame-ancestors 'none'"},
	{xhttp.CacheControl, "no-store"},
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, sh := range securityHeaders {
			if h.Get(sh.key) == "" {
				h.Set(sh.key, sh.value)
			}
		}
		next.ServeHTTP(w, r)
	})
}
