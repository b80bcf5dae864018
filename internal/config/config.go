// Package config loads statusdeck configuration from an optional YAML file
// and environment overrides. Every field has a usable default; malformed
// values fall back to the default for that field rather than propagating.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the watch retry policy.
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayMs   = 2000
	DefaultPollIntervalMs = 5000
)

// Environment variable names recognized by ApplyEnv.
const (
	EnvBaseURL        = "STATUSDECK_URL"
	EnvToken          = "STATUSDECK_TOKEN"
	EnvMaxRetries     = "STATUSDECK_MAX_RETRIES"
	EnvRetryDelayMs   = "STATUSDECK_RETRY_DELAY_MS"
	EnvPollIntervalMs = "STATUSDECK_POLL_INTERVAL_MS"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// WatchConfig is the retry policy for the real-time update channel.
// MaxRetries counts scheduled stream re-attempts; 0 means a single failed
// attempt falls straight back to polling. Delays are plain milliseconds so
// the file and environment share one format.
type WatchConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	RetryDelayMs   int `yaml:"retry_delay_ms"`
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// RetryDelay returns the delay between stream re-attempts.
func (w WatchConfig) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelayMs) * time.Millisecond
}

// PollInterval returns the interval between snapshot fetches while polling.
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:4173",
		},
		Watch: WatchConfig{
			MaxRetries:     DefaultMaxRetries,
			RetryDelayMs:   DefaultRetryDelayMs,
			PollIntervalMs: DefaultPollIntervalMs,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads and parses the YAML file at path. Fields absent from the file
// keep their defaults; out-of-range watch values are normalized back to
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the default configuration
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// ApplyEnv overlays environment variables onto the configuration. Malformed
// numeric values are logged and replaced with the field's default.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Watch.MaxRetries = n
		} else {
			log.Printf("config: invalid %s=%q, using default %d", EnvMaxRetries, v, DefaultMaxRetries)
			c.Watch.MaxRetries = DefaultMaxRetries
		}
	}
	if v := os.Getenv(EnvRetryDelayMs); v != "" {
		c.Watch.RetryDelayMs = envMillis(EnvRetryDelayMs, v, DefaultRetryDelayMs)
	}
	if v := os.Getenv(EnvPollIntervalMs); v != "" {
		c.Watch.PollIntervalMs = envMillis(EnvPollIntervalMs, v, DefaultPollIntervalMs)
	}
	c.normalize()
}

func envMillis(name, value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s=%q, using default %dms", name, value, def)
		return def
	}
	return n
}

// normalize clamps watch values to sane bounds, falling back to defaults.
func (c *Config) normalize() {
	if c.Watch.MaxRetries < 0 {
		log.Printf("config: max_retries %d out of range, using default %d", c.Watch.MaxRetries, DefaultMaxRetries)
		c.Watch.MaxRetries = DefaultMaxRetries
	}
	if c.Watch.RetryDelayMs <= 0 {
		log.Printf("config: retry_delay_ms %d out of range, using default %d", c.Watch.RetryDelayMs, DefaultRetryDelayMs)
		c.Watch.RetryDelayMs = DefaultRetryDelayMs
	}
	if c.Watch.PollIntervalMs <= 0 {
		log.Printf("config: poll_interval_ms %d out of range, using default %d", c.Watch.PollIntervalMs, DefaultPollIntervalMs)
		c.Watch.PollIntervalMs = DefaultPollIntervalMs
	}
}

// Diff lists human-readable differences between two configurations. Used at
// startup to log which settings deviate from the defaults.
func Diff(old, new *Config) []string {
	var changes []string

	if old.Server.BaseURL != new.Server.BaseURL {
		changes = append(changes, fmt.Sprintf("server.base_url: %s → %s", old.Server.BaseURL, new.Server.BaseURL))
	}
	if (old.Server.Token != "") != (new.Server.Token != "") {
		changes = append(changes, fmt.Sprintf("server.token: set=%t → set=%t", old.Server.Token != "", new.Server.Token != ""))
	}
	if old.Watch.MaxRetries != new.Watch.MaxRetries {
		changes = append(changes, fmt.Sprintf("watch.max_retries: %d → %d", old.Watch.MaxRetries, new.Watch.MaxRetries))
	}
	if old.Watch.RetryDelayMs != new.Watch.RetryDelayMs {
		changes = append(changes, fmt.Sprintf("watch.retry_delay_ms: %d → %d", old.Watch.RetryDelayMs, new.Watch.RetryDelayMs))
	}
	if old.Watch.PollIntervalMs != new.Watch.PollIntervalMs {
		changes = append(changes, fmt.Sprintf("watch.poll_interval_ms: %d → %d", old.Watch.PollIntervalMs, new.Watch.PollIntervalMs))
	}

	return changes
}
