package handler

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/service/trigger"
	"github.com/garrettladley/chirp/internal/validator"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
)

const (
	actionLike    = "like"
	actionRetweet = "retweet"
	actionFollow  = "follow"
)

type Actions struct {
	trigger *trigger.Trigger
}

func NewActions(trigger *trigger.Trigger) *Actions {
	return &Actions{trigger: trigger}
}

type actionRequest struct {
	Action   string `json:"action" validate:"required,oneof=like retweet follow"`
	ActorID  string `json:"actorId" validate:"required,max=256"`
	TargetID string `json:"targetId" validate:"required,max=256"`
}

// HandleAction handles POST /api/actions requests. The social action has
// already happened; notifying its target is best effort, so the response is
// 202 even when the event could not be queued.
func (h *Actions) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req actionRequest
	if err := xhttp.DecodeJSON(w, r, &req); err != nil {
		xerrors.WriteError(ctx, w, xerrors.Decode(err))
		return
	}
	if verr := validator.Validate(req); verr != nil {
		xerrors.WriteError(ctx, w, verr)
		return
	}

	switch req.Action {
	case actionLike:
		h.trigger.Liked(ctx, req.ActorID, req.TargetID)
	case actionRetweet:
		h.trigger.Retweeted(ctx, req.ActorID, req.TargetID)
	case actionFollow:
		h.trigger.Followed(ctx, req.ActorID, req.TargetID)
	}

	w.WriteHeader(http.StatusAccepted)
}
