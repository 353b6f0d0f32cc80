package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/garrettladley/chirp/internal/version"
	"github.com/garrettladley/chirp/internal/xerrors"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ping       error
		wantStatus int
	}{
		{name: "store up", wantStatus: http.StatusOK},
		{name: "store down", ping: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealth(pingerFunc(func(ctx context.Context) error {
				_, hasDeadline := ctx.Deadline()
				require.True(t, hasDeadline)
				return tt.ping
			}))

			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/health", nil))
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.ping != nil {
				var body xerrors.Response
				require.NoError(t, go_json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, xerrors.CodeUnavailable, body.Code)
				require.Equal(t, "store unavailable", body.Message)
				return
			}

			var body struct {
				Status  string `json:"status"`
				Version string `json:"version"`
			}
			require.NoError(t, go_json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, "ok", body.Status)
			require.Equal(t, version.Get(), body.Version)
		})
	}
}
