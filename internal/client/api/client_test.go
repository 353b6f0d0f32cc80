package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/garrettladley/chirp/internal/queue"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var got queue.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/events", r.URL.Path)
		require.Equal(t, "key", r.Header.Get(xhttp.XAPIKey))
		require.NoError(t, go_json.NewDecoder(r.Body).Decode(&got))
		xhttp.WriteAccepted(w, map[string]string{"id": "1-0"})
	}))
	t.Cleanup(srv.Close)

	id, err := NewClient(srv.URL+"/", "key").Publish(t.Context(), queue.Event{RecipientID: "alice", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "1-0", id)
	require.Equal(t, queue.Event{RecipientID: "alice", Message: "hi"}, got)
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xerrors.WriteError(r.Context(), w, xerrors.Unauthorized(xerrors.WithMessage("invalid API key")))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, "wrong").ListNotifications(t.Context(), "alice")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, xerrors.CodeUnauthorized, statusErr.Code)
	require.Equal(t, "invalid API key", statusErr.Message)
}
