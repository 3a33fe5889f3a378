// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/kv"
)

// Settings shared by the server and the bot.
type Settings struct {
	HTTPAddr        string        `env:"OUTCOME_HTTP_ADDR"        envDefault:":8080"`
	GRPCAddr        string        `env:"OUTCOME_GRPC_ADDR"        envDefault:":9090"`
	ConfigDir       string        `env:"OUTCOME_CONFIG_DIR"       envDefault:"configs"`
	Games           []string      `env:"OUTCOME_GAMES"            envDefault:"dice,bull,wheel" envSeparator:","`
	ReloadInterval  time.Duration `env:"OUTCOME_RELOAD_INTERVAL"  envDefault:"2s"` // 0 disables hot reload
	ShutdownTimeout time.Duration `env:"OUTCOME_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"OUTCOME_LOG_LEVEL"        envDefault:"info"`
	OTELEndpoint    string        `env:"OUTCOME_OTEL_ENDPOINT"`

	StoreBackend  string `env:"OUTCOME_STORE"          envDefault:"memory"`
	StorePath     string `env:"OUTCOME_STORE_PATH"     envDefault:"outcome.db"`
	RedisAddr     string `env:"OUTCOME_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"OUTCOME_REDIS_PASSWORD"`
	RedisDB       int    `env:"OUTCOME_REDIS_DB"       envDefault:"0"`

	TelegramToken string `env:"OUTCOME_TELEGRAM_TOKEN"`
}

// Load parses Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	for i, g := range s.Games {
		s.Games[i] = strings.TrimSpace(g)
	}
	return s, nil
}

// Store selects the kv backend.
func (s Settings) Store() kv.Settings {
	return kv.Settings{
		Backend:       s.StoreBackend,
		Path:          s.StorePath,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
	}
}

// Logger builds a JSON logger on w at the configured level. Unknown levels
// fall back to info.
func (s Settings) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
