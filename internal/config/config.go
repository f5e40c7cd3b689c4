package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned when no database connection string
// could be found in the environment or config file.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required")

// Config holds application configuration: database, optional Redis,
// HTTP server, M3U fetcher, and stream prober settings.
type Config struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort  string        `yaml:"server_port" env:"SERVER_PORT"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	FFProbePath      string        `yaml:"ffprobe_path" env:"FFPROBE_PATH"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
	ProbeConcurrency int           `yaml:"probe_concurrency" env:"PROBE_CONCURRENCY"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from
// the current directory. DATABASE_URL is required; everything else is
// optional with sensible defaults. REDIS_URL being empty disables the
// cache layer and the distributed lock.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := defaults()
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisURL = os.Getenv("REDIS_URL")
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.ServerPort = v
	}
	if v := os.Getenv("FETCHER_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("FETCHER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("FFPROBE_PATH"); v != "" {
		c.FFProbePath = v
	}
	if v := os.Getenv("PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ProbeTimeout = d
		}
	}
	if v := os.Getenv("PROBE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ProbeConcurrency = n
		}
	}
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:       "8080",
		UserAgent:        "StreamPlus/1.0",
		Timeout:          30 * time.Second,
		FFProbePath:      "ffprobe",
		ProbeTimeout:     30 * time.Second,
		ProbeConcurrency: 4,
	}
}
