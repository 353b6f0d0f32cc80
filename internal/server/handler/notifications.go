package handler

import (
	"net/http"

	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	pathUserID         = "userID"
	pathNotificationID = "notificationID"

	maxIDLen = 256
)

type Notifications struct {
	service notification.Service
}

func NewNotifications(service notification.Service) *Notifications {
	return &Notifications{service: service}
}

// HandleList handles GET /api/users/{userID}/notifications requests.
func (h *Notifications) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := pathID(w, r, pathUserID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.UserID(userID))

	result, err := h.service.ListNotifications(ctx, userID)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("failed to list notifications"),
			xerrors.WithCause(err),
		))
		return
	}

	xslog.FromContext(ctx).DebugContext(ctx, "listed notifications",
		xslog.Count(len(result.Notifications)),
	)

	xhttp.WriteOK(w, result)
}

type pendingResponse struct {
	Notifications []storage.Notification `json:"notifications"`
}

// HandlePending handles GET /api/users/{userID}/pending requests.
func (h *Notifications) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := pathID(w, r, pathUserID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.UserID(userID))

	pending, err := h.service.ListPending(ctx, userID)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("failed to list pending notifications"),
			xerrors.WithCause(err),
		))
		return
	}
	if pending == nil {
		pending = []storage.Notification{}
	}

	xhttp.WriteOK(w, pendingResponse{Notifications: pending})
}

// HandleMarkRead handles POST /api/users/{userID}/notifications/{notificationID}/read requests.
func (h *Notifications) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := pathID(w, r, pathUserID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.UserID(userID))
	notificationID, ok := pathID(w, r, pathNotificationID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.NotificationID(notificationID))

	found, err := h.service.HandleMarkRead(ctx, notificationID, userID)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("failed to mark notification read"),
			xerrors.WithCause(err),
		))
		return
	}
	if !found {
		xerrors.WriteError(ctx, w, xerrors.NotFound(xerrors.WithMessage("notification not found")))
		return
	}

	xhttp.WriteNoContent(w)
}

// HandleDelete handles DELETE /api/users/{userID}/notifications/{notificationID} requests.
func (h *Notifications) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := pathID(w, r, pathUserID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.UserID(userID))
	notificationID, ok := pathID(w, r, pathNotificationID)
	if !ok {
		return
	}
	ctx = xslog.With(ctx, xslog.NotificationID(notificationID))

	found, err := h.service.DeleteNotification(ctx, userID, notificationID)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("failed to delete notification"),
			xerrors.WithCause(err),
		))
		return
	}
	if !found {
		xerrors.WriteError(ctx, w, xerrors.NotFound(xerrors.WithMessage("notification not found")))
		return
	}

	xhttp.WriteNoContent(w)
}

// HandleStats handles GET /api/stats requests.
func (h *Notifications) HandleStats(w http.ResponseWriter, _ *http.Request) {
	xhttp.WriteOK(w, h.service.Stats())
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" || len(id) > maxIDLen {
		xerrors.WriteError(r.Context(), w, xerrors.Validation(map[string]string{
			name: "must be 1-256 characters",
		}))
		return "", false
	}
	return id, true
}
