package server

import (
	"log/slog"
	"net/http"

	servermw "github.com/garrettladley/chirp/internal/server/middleware"
	"github.com/garrettladley/chirp/internal/server/handler"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xhttp/middleware"
)

const socketPath = "/ws"

type Handlers struct {
	Health        *handler.Health
	Socket        *handler.Socket
	Events        *handler.Events
	Actions       *handler.Actions
	Notifications *handler.Notifications
}

type RouteConfig struct {
	APIKeys     []string
	RateLimiter storage.RateLimiter
	Logger      *slog.Logger
}

// Routes mounts every endpoint behind the shared middleware stack. /health is
// only rate limited; everything else also requires an API key.
func Routes(h Handlers, cfg RouteConfig) http.Handler {
	mux := http.NewServeMux()

	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", h.Health.HandleHealth)
	mux.Handle("/health", middleware.Chain(publicMux,
		servermw.RateLimit(cfg.RateLimiter),
	))

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET "+socketPath, h.Socket.HandleSocket)
	apiMux.HandleFunc("POST /api/events", h.Events.HandlePublish)
	apiMux.HandleFunc("POST /api/actions", h.Actions.HandleAction)
	apiMux.HandleFunc("GET /api/stats", h.Notifications.HandleStats)
	apiMux.HandleFunc("GET /api/users/{userID}/notifications", h.Notifications.HandleList)
	apiMux.HandleFunc("GET /api/users/{userID}/pending", h.Notifications.HandlePending)
	apiMux.HandleFunc("POST /api/users/{userID}/notifications/{notificationID}/read", h.Notifications.HandleMarkRead)
	apiMux.HandleFunc("DELETE /api/users/{userID}/notifications/{notificationID}", h.Notifications.HandleDelete)
	apiWrapped := middleware.Chain(apiMux,
		servermw.RateLimit(cfg.RateLimiter),
		servermw.APIKeyAuth(cfg.APIKeys),
	)
	mux.Handle(socketPath, apiWrapped)
	mux.Handle("/api/", apiWrapped)

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID(),
		middleware.Logger(cfg.Logger),
		middleware.Logging,
		middleware.ShutdownContext,
		middleware.SecurityHeaders,
		middleware.Gzip(middleware.SkipPaths(socketPath)),
	)
}
