package handler

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/queue"
	"github.com/garrettladley/chirp/internal/validator"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

type Events struct {
	publisher queue.Publisher
}

func NewEvents(publisher queue.Publisher) *Events {
	return &Events{publisher: publisher}
}

type publishResponse struct {
	ID string `json:"id"`
}

// HandlePublish handles POST /api/events requests.
func (h *Events) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event queue.Event
	if err := xhttp.DecodeJSON(w, r, &event); err != nil {
		xerrors.WriteError(ctx, w, xerrors.Decode(err))
		return
	}

	if verr := validator.Validate(event); verr != nil {
		xerrors.WriteError(ctx, w, verr)
		return
	}

	id, err := h.publisher.Publish(ctx, event)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("failed to publish event"),
			xerrors.WithCause(err),
		))
		return
	}

	xslog.FromContext(ctx).DebugContext(ctx, "event accepted",
		xslog.UserID(event.RecipientID),
		xslog.StreamID(id),
	)

	xhttp.WriteAccepted(w, publishResponse{ID: id})
}
