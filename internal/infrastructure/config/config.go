package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Playground PlaygroundConfig
	Sandbox    SandboxConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds relay HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"5000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// UpstreamConfig holds generative language API configuration.
type UpstreamConfig struct {
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	Model   string `envconfig:"GEMINI_MODEL" default:"models/gemini-2.5-flash"`
	BaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
}

// PlaygroundConfig holds workspace host configuration.
type PlaygroundConfig struct {
	Port          string `envconfig:"PLAYGROUND_PORT" default:"3000"`
	RelayURL      string `envconfig:"RELAY_URL" default:"http://localhost:5000"`
	StorePath     string `envconfig:"PLAYGROUND_STORE_PATH" default:"/tmp/flash-ide/workspace.db"`
	SeedFile      string `envconfig:"PLAYGROUND_SEED_FILE"`
	DiscardStale  bool   `envconfig:"PLAYGROUND_DISCARD_STALE" default:"false"`
	SurfaceErrors bool   `envconfig:"PLAYGROUND_SURFACE_ERRORS" default:"false"`
}

// SandboxConfig holds preview sandbox limits.
type SandboxConfig struct {
	Timeout time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5000",
			Host: "0.0.0.0",
		},
		Upstream: UpstreamConfig{
			Model:   "models/gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		Playground: PlaygroundConfig{
			Port:      "3000",
			RelayURL:  "http://localhost:5000",
			StorePath: "/tmp/flash-ide/workspace.db",
		},
		Sandbox: SandboxConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
