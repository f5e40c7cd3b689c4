package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	RedisURL         string `yaml:"redis_url"`
	ServerPort       string `yaml:"server_port"`
	UserAgent        string `yaml:"user_agent"`
	Timeout          string `yaml:"timeout"`
	FFProbePath      string `yaml:"ffprobe_path"`
	ProbeTimeout     string `yaml:"probe_timeout"`
	ProbeConcurrency string `yaml:"probe_concurrency"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := defaults()
	c.DatabaseURL = f.DatabaseURL
	c.RedisURL = f.RedisURL
	if f.ServerPort != "" {
		c.ServerPort = f.ServerPort
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	if f.FFProbePath != "" {
		c.FFProbePath = f.FFProbePath
	}
	if f.ProbeTimeout != "" {
		if d, err := time.ParseDuration(f.ProbeTimeout); err == nil {
			c.ProbeTimeout = d
		}
	}
	if f.ProbeConcurrency != "" {
		if n, err := strconv.Atoi(f.ProbeConcurrency); err == nil && n > 0 {
			c.ProbeConcurrency = n
		}
	}
	return c, nil
}
