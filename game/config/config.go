package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting the server reads at startup
type Config struct {
	Host        string `env:"GAME2048_HOST" envDefault:"localhost"`
	Port        int    `env:"GAME2048_PORT" envDefault:"8080"`
	SessionsDir string `env:"GAME2048_SESSIONS_DIR" envDefault:"sessions"`
	Persist     bool   `env:"GAME2048_PERSIST" envDefault:"true"`

	// Seed fixes tile placement for every session; 0 picks a random seed.
	Seed uint64 `env:"GAME2048_SEED" envDefault:"0"`

	LogLevel  string `env:"GAME2048_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"GAME2048_LOG_PRETTY" envDefault:"false"`

	SessionTTL      time.Duration `env:"GAME2048_SESSION_TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"GAME2048_CLEANUP_INTERVAL" envDefault:"1h"`
	SyncInterval    time.Duration `env:"GAME2048_SYNC_INTERVAL" envDefault:"5s"`

	// StrictGameOver makes moves on a finished game fail instead of returning an unchanged board.
	StrictGameOver bool `env:"GAME2048_STRICT_GAME_OVER" envDefault:"false"`

	Telemetry bool `env:"GAME2048_TELEMETRY" envDefault:"false"`

	Ngrok NgrokConfig
}

// NgrokConfig configures the optional public tunnel
type NgrokConfig struct {
	Enabled   bool   `env:"NGROK_ENABLED" envDefault:"false"`
	AuthToken string `env:"NGROK_AUTHTOKEN"`
	Domain    string `env:"NGROK_DOMAIN"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment. Missing .env files are ignored; variables already set in
// the environment take precedence over file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings for values the server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Persist && c.SessionsDir == "" {
		errs = append(errs, errors.New("sessions_dir is required when persistence is enabled"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval must be positive, got %s", c.CleanupInterval))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync_interval must be positive, got %s", c.SyncInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the loopback URL clients use to reach the HTTP server
func (c *Config) BaseURL() string {
	return "http://" + c.Addr()
}
