package config

import (
	"github.com/caarlos0/env/v11"
)

const DefaultServerURL = "http://localhost:8080"

// Config is the notifyctl configuration, read from CHIRP_* variables.
type Config struct {
	ServerURL string `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	APIKey    string `env:"API_KEY"`
	UserID    string `env:"USER_ID"`
}

func Read() (Config, error) {
	return env.ParseAsWithOptions[Config](env.Options{Prefix: "CHIRP_"})
}
