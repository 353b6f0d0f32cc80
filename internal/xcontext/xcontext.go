// Package xcontext holds the request-scoped values shared by the HTTP and
// socket layers.
package xcontext

import "context"

type (
	requestIDKey          struct{}
	shutdownInProgressKey struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID reports the id stamped by the request id middleware. An empty id
// counts as absent.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// SetShutdownInProgress marks the context as being in a shutdown state so
// socket sessions can tell a server drain apart from a client disconnect.
func SetShutdownInProgress(ctx context.Context, inProgress bool) context.Context {
	return context.WithValue(ctx, shutdownInProgressKey{}, inProgress)
}

func IsShutdownInProgress(ctx context.Context) bool {
	inProgress, ok := ctx.Value(shutdownInProgressKey{}).(bool)
	return ok && inProgress
}
