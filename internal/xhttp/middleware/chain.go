package middleware

import "net/http"

// Chain wraps h so that middleware runs in the order given: the first entry
// sees the request first. The middleware slice is not modified.
func Chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
