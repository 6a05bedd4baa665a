package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds the service settings.
type Config struct {
	DBPath          string        `env:"DB_PATH" envDefault:"assetledger.sqlite3"`
	Addr            string        `env:"ADDR" envDefault:":8080"`
	LogPath         string        `env:"LOG_PATH"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AdminUser       string        `env:"ADMIN_USER" envDefault:"Admin"`
	AdminOrg        string        `env:"ADMIN_ORG" envDefault:"ORG001"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath     string        `env:"METRICS_PATH" envDefault:"/metrics"`
	GroupIDWidth    int           `env:"GROUP_ID_WIDTH" envDefault:"6"`
	MemberIDWidth   int           `env:"MEMBER_ID_WIDTH" envDefault:"8"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadEnvFiles loads the files that exist and reports how many were loaded.
// Variables already set in the environment win.
func LoadEnvFiles(files []string) (int, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads the env files and parses the environment into a Config.
func Load(envFiles []string) (*Config, error) {
	if _, err := LoadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR must not be empty"))
	}
	if c.GroupIDWidth <= 0 || c.MemberIDWidth <= 0 {
		errs = append(errs, errors.New("GROUP_ID_WIDTH and MEMBER_ID_WIDTH must be positive"))
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("METRICS_PATH %q must start with /", c.MetricsPath))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
