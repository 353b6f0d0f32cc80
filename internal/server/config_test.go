package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appenv "github.com/garrettladley/chirp/internal/env"
)

func TestReadConfigDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, appenv.Development, cfg.Env)
	require.Equal(t, BackendMemory, cfg.Backend)
	require.Equal(t, int64(16384), cfg.Socket.ReadLimit)
	require.Equal(t, "notifications:queue", cfg.Queue.Stream)
	require.False(t, cfg.UsesQueue())
}

func TestReadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("API_KEYS", "a,b")
	t.Setenv("ALLOWED_ORIGINS", "example.com")
	t.Setenv("RATE_LIMIT", "60")
	t.Setenv("RATE_WINDOW", "30s")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, BackendRedis, cfg.Backend)
	require.Equal(t, []string{"a", "b"}, cfg.APIKeys)
	require.Equal(t, []string{"example.com"}, cfg.AllowedOrigins)
	require.InDelta(t, 2.0, cfg.RateLimit.PerSecond(), 1e-9)
	require.True(t, cfg.UsesQueue())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Env:       appenv.Development,
		Backend:   BackendMemory,
		RateLimit: RateLimit{Limit: 10, Window: time.Minute},
		Socket:    Socket{ReadLimit: 1024},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad env", mutate: func(c *Config) { c.Env = "staging" }, wantErr: "invalid environment"},
		{name: "bad backend", mutate: func(c *Config) { c.Backend = "mongo" }, wantErr: "invalid storage backend"},
		{name: "redis without url", mutate: func(c *Config) { c.Backend = BackendRedis }, wantErr: "REDIS_URL"},
		{name: "postgres without url", mutate: func(c *Config) { c.Backend = BackendPostgres }, wantErr: "DATABASE_URL"},
		{name: "production without keys", mutate: func(c *Config) { c.Env = appenv.Production }, wantErr: "API_KEYS"},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: "RATE_WINDOW"},
		{name: "zero read limit", mutate: func(c *Config) { c.Socket.ReadLimit = 0 }, wantErr: "SOCKET_READ_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
