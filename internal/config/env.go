// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// Storage selects where sessions are saved and which tech tree is served.
type Storage struct {
	SaveDB           string        `env:"SAVE_DB" envDefault:"saves.db"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"30s"`
	// CatalogPath overrides the built-in upgrade catalog with a YAML file.
	CatalogPath string `env:"CATALOG_PATH"`
}

// Logging configures the process logger.
type Logging struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// SSH configures the SSH game host.
type SSH struct {
	Host    string `env:"SSH_HOST" envDefault:"::"`
	Port    string `env:"SSH_PORT" envDefault:"2222"`
	HostKey string `env:"SSH_HOST_KEY" envDefault:"/app/keys/host_key"`
	Storage
	Logging
}

// Web configures the browser landing page and live feed.
type Web struct {
	Host           string `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           string `env:"WEB_PORT" envDefault:"8080"`
	SSHDisplayHost string `env:"SSH_DISPLAY_HOST" envDefault:"your-server.com"`
	Storage
	Logging
}

// Game configures the local single-player binary.
type Game struct {
	Player string `env:"PLAYER" envDefault:"pilot"`
	Storage
	Logging
}

// Load parses environment variables into a new T.
func Load[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds a logger at the configured level writing to w, or to
// stderr when w is nil.
func (l Logging) NewLogger(w io.Writer, prefix string) (*log.Logger, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	}), nil
}
