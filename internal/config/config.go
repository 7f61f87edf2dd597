package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.tekflox/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`

	// GatewayURL is the base URL of the social-aggregator backend the
	// daemon syncs from.
	GatewayURL string `toml:"gateway_url"`

	// APIListen is the address the daemon's local HTTP API binds to.
	// Loopback only: the API is a UI channel, not a public surface.
	APIListen string `toml:"api_listen"`

	PollIntervalMS    int `toml:"poll_interval_ms"`
	LongPollTimeoutMS int `toml:"longpoll_timeout_ms"`

	// Gateway (inboxgw) settings.
	GatewayListen string `toml:"gateway_listen"`
	JWTSecret     string `toml:"jwt_secret"`
	OpenAIAPIKey  string `toml:"openai_api_key"`
}

// Default returns a config populated with defaults for every field a
// profile can omit.
func Default() *Config {
	return &Config{
		DefaultProfile:    "main",
		GatewayURL:        "http://localhost:3002",
		APIListen:         "127.0.0.1:8990",
		PollIntervalMS:    5000,
		LongPollTimeoutMS: 15000,
		GatewayListen:     ":3002",
		JWTSecret:         "development-secret-change-in-production",
	}
}

// Load reads config from the given path, filling unset fields with
// defaults. Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg.normalize(), nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// PollInterval returns the global poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// LongPollTimeout returns the server-side wait budget for long polls.
func (c *Config) LongPollTimeout() time.Duration {
	return time.Duration(c.LongPollTimeoutMS) * time.Millisecond
}

func (c *Config) normalize() *Config {
	def := Default()
	if c.DefaultProfile == "" {
		c.DefaultProfile = def.DefaultProfile
	}
	if c.GatewayURL == "" {
		c.GatewayURL = def.GatewayURL
	}
	if c.APIListen == "" {
		c.APIListen = def.APIListen
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = def.PollIntervalMS
	}
	if c.LongPollTimeoutMS <= 0 {
		c.LongPollTimeoutMS = def.LongPollTimeoutMS
	}
	if c.GatewayListen == "" {
		c.GatewayListen = def.GatewayListen
	}
	if c.JWTSecret == "" {
		c.JWTSecret = def.JWTSecret
	}
	return c
}
