package xerrors

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
	go_json "github.com/goccy/go-json"
)

// Response is the JSON body of every non-2xx API response.
type Response struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError logs err against the request logger and writes it as a Response.
// Errors that are not *Error are reported as 500 without leaking their text.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	e := As(err)
	if e == nil {
		e = Internal(WithCause(err))
	}

	logError(ctx, e)

	h := w.Header()
	xhttp.SetHeaderContentTypeApplicationJSON(w)
	if e.RetryAfter > 0 {
		xhttp.SetHeaderRetryAfter(w, e.RetryAfter)
	}
	if e.Reason != "" {
		h.Set(xhttp.XRateLimitReason, e.Reason)
	}
	w.WriteHeader(e.StatusCode)

	_ = go_json.NewEncoder(w).Encode(Response{
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
	})
}

func logError(ctx context.Context, e *Error) {
	attrs := []any{
		xslog.HTTPStatus(e.StatusCode),
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}
	if e.Cause != nil {
		attrs = append(attrs, xslog.Error(e.Cause))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	if len(e.Fields) > 0 {
		attrs = append(attrs, slog.Any("fields", e.Fields))
	}

	logger := xslog.FromContext(ctx)
	switch {
	case e.StatusCode >= 500:
		logger.ErrorContext(ctx, "server error", attrs...)
	case e.StatusCode >= 400:
		logger.WarnContext(ctx, "client error", attrs...)
	default:
		logger.InfoContext(ctx, "error response", attrs...)
	}
}
