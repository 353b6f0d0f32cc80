package handler

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/garrettladley/chirp/internal/realtime"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

type Socket struct {
	server         *realtime.Server
	originPatterns []string
}

// NewSocket serves the websocket endpoint. originPatterns lists the
// cross-origin hosts allowed to connect; same-origin is always allowed.
func NewSocket(server *realtime.Server, originPatterns []string) *Socket {
	return &Socket{server: server, originPatterns: originPatterns}
}

// HandleSocket handles GET /ws requests.
func (h *Socket) HandleSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the error response.
		xslog.FromContext(ctx).WarnContext(ctx, "websocket upgrade failed", xslog.Error(err))
		return
	}

	h.server.ServeConn(ctx, ws, xhttp.GetRequestIP(r))
}
