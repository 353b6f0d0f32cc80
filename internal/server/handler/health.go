package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/garrettladley/chirp/internal/version"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	store Pinger
}

func NewHealth(store Pinger) *Health {
	return &Health{store: store}
}

type healthResponse struct {
	Status string `json:"status"`
	version.Info
}

// HandleHealth handles GET /health requests.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("store unavailable"),
			xerrors.WithCause(err),
		))
		return
	}

	xhttp.WriteOK(w, healthResponse{Status: "ok", Info: version.Build()})
}
