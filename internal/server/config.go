package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/garrettladley/chirp/internal/env"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Port           string             `env:"PORT" envDefault:"8080"`
	Env            appenv.Environment `env:"ENV" envDefault:"development"`
	Backend        Backend            `env:"STORAGE_BACKEND" envDefault:"memory"`
	APIKeys        []string           `env:"API_KEYS" envSeparator:","`
	AllowedOrigins []string           `env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownGrace  time.Duration      `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"2s"`
	Redis          Redis              `envPrefix:"REDIS_"`
	Database       Database           `envPrefix:"DATABASE_"`
	RateLimit      RateLimit          `envPrefix:"RATE_"`
	Socket         Socket             `envPrefix:"SOCKET_"`
	Queue          Queue              `envPrefix:"QUEUE_"`
}

type Redis struct {
	URL string `env:"URL"`
}

type Database struct {
	URL string `env:"URL"`
}

// RateLimit bounds HTTP requests per client IP.
type RateLimit struct {
	Limit  int           `env:"LIMIT" envDefault:"100"`
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
	Burst  int           `env:"BURST" envDefault:"20"`
}

// PerSecond is the refill rate used by the in-memory limiter.
func (r RateLimit) PerSecond() float64 {
	return float64(r.Limit) / r.Window.Seconds()
}

// Socket bounds inbound control traffic per connection. The liveness sweep
// interval is fixed at registry.SweepInterval.
type Socket struct {
	MessageRate  float64 `env:"MESSAGE_RATE" envDefault:"10"`
	MessageBurst int     `env:"MESSAGE_BURST" envDefault:"20"`
	ReadLimit    int64   `env:"READ_LIMIT" envDefault:"16384"`
}

type Queue struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Stream   string `env:"STREAM" envDefault:"notifications:queue"`
	Group    string `env:"GROUP" envDefault:"dispatchers"`
	Consumer string `env:"CONSUMER"`
}

func ReadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesQueue reports whether events go through the Redis stream rather than
// straight to the dispatcher.
func (c Config) UsesQueue() bool {
	return c.Queue.Enabled && c.Redis.URL != ""
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Env.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage backend: %q (valid: memory, redis, postgres)", c.Backend))
	}

	if c.Env.IsProduction() && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("API_KEYS is required in production"))
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT and RATE_WINDOW must be positive"))
	}
	if c.Socket.ReadLimit <= 0 {
		errs = append(errs, errors.New("SOCKET_READ_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}
