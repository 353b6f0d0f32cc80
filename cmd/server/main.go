package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/chirp/internal/migrations/postgres"
	"github.com/garrettladley/chirp/internal/queue"
	"github.com/garrettladley/chirp/internal/realtime"
	xredis "github.com/garrettladley/chirp/internal/redis"
	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/server"
	"github.com/garrettladley/chirp/internal/server/handler"
	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/service/trigger"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	keyPort        = "port"
	keyGracePeriod = "grace_period"

	redisClientName = "chirp-server"
	shutdownTimeout = 30 * time.Second
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := server.ReadConfig()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = xredis.New(ctx, xredis.Config{URL: cfg.Redis.URL, ClientName: redisClientName})
		if err != nil {
			return fmt.Errorf("failed to initialize redis client: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
	}

	store, err := initNotificationStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close notification store", xslog.Error(err))
		}
	}()

	limiter, closeLimiter := initRateLimiter(ctx, cfg, redisClient, logger)
	defer closeLimiter()

	reg := registry.New(logger)
	dispatcher := notification.NewDispatcher(store, reg, notification.NewAckTracker(), logger)
	socketServer := realtime.NewServer(reg, dispatcher, realtime.Config{
		MessageRate:  cfg.Socket.MessageRate,
		MessageBurst: cfg.Socket.MessageBurst,
		ReadLimit:    cfg.Socket.ReadLimit,
	})

	var publisher queue.Publisher = queue.NewDirectPublisher(dispatcher)
	var worker *queue.Worker
	if cfg.UsesQueue() {
		publisher = queue.NewRedisPublisher(redisClient, cfg.Queue.Stream)
		worker = queue.NewWorker(redisClient, dispatcher, queue.WorkerConfig{
			Stream:   cfg.Queue.Stream,
			Group:    cfg.Queue.Group,
			Consumer: consumerName(cfg),
		}, logger)
	}

	routes := server.Routes(server.Handlers{
		Health:        handler.NewHealth(store),
		Socket:        handler.NewSocket(socketServer, cfg.AllowedOrigins),
		Events:        handler.NewEvents(publisher),
		Actions:       handler.NewActions(trigger.New(publisher, logger)),
		Notifications: handler.NewNotifications(dispatcher),
	}, server.RouteConfig{
		APIKeys:     cfg.APIKeys,
		RateLimiter: limiter,
		Logger:      logger,
	})

	shutdownCoordinator := server.NewShutdownCoordinator(cfg.ShutdownGrace)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // sockets set their own write deadlines
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return shutdownCoordinator.BaseContext()
		},
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	g, gctx := errgroup.WithContext(workCtx)

	sweeper := registry.NewSweeper(reg, registry.SweepInterval, logger)
	g.Go(func() error { return sweeper.Run(gctx) })

	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	g.Go(func() error {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			xslog.Backend(string(cfg.Backend)),
			slog.String(keyPort, cfg.Port),
			slog.Bool("queue", worker != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	select {
	case <-sigCtx.Done():
		logger.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown")
	case <-gctx.Done():
		logger.ErrorContext(ctx, "component failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// cancel base context and wait grace period for sockets to close
	shutdownCoordinator.InitiateShutdown(shutdownCtx)
	logger.InfoContext(ctx, "socket grace period complete, shutting down server",
		slog.Duration(keyGracePeriod, cfg.ShutdownGrace))

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	cancelWork()

	if err := g.Wait(); err != nil {
		return err
	}
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}

func initNotificationStore(ctx context.Context, cfg server.Config, redisClient *redis.Client, logger *slog.Logger) (storage.NotificationStore, error) {
	logger.InfoContext(ctx, "initializing notification store", xslog.Backend(string(cfg.Backend)))

	switch cfg.Backend {
	case server.BackendRedis:
		return storage.NewRedisNotificationStore(redisClient), nil
	case server.BackendPostgres:
		pool, err := initPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return storage.NewPostgresNotificationStore(pool), nil
	default:
		return storage.NewMemoryNotificationStore(), nil
	}
}

func initRateLimiter(ctx context.Context, cfg server.Config, redisClient *redis.Client, logger *slog.Logger) (storage.RateLimiter, func()) {
	if redisClient != nil {
		logger.InfoContext(ctx, "initializing redis rate limiter",
			slog.Int("limit", cfg.RateLimit.Limit),
			xslog.Interval(cfg.RateLimit.Window),
		)
		return storage.NewRedisRateLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window), func() {}
	}

	logger.InfoContext(ctx, "initializing in-memory rate limiter",
		slog.Float64("per_second", cfg.RateLimit.PerSecond()),
		slog.Int("burst", cfg.RateLimit.Burst),
	)
	limiter := storage.NewMemoryRateLimiter(cfg.RateLimit.PerSecond(), cfg.RateLimit.Burst)
	return limiter, func() { _ = limiter.Close() }
}

func initPostgres(ctx context.Context, cfg server.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.InfoContext(ctx, "initializing PostgreSQL")

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := postgres.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return pool, nil
}

func consumerName(cfg server.Config) string {
	if cfg.Queue.Consumer != "" {
		return cfg.Queue.Consumer
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "chirp"
}
