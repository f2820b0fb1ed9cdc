// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the MediaFlow client.
//
// Fields:
//   - BackendBaseURL: base URL of the media backend API.
//   - RequestTimeout: per-request timeout for backend calls.
//   - PollInterval / MaxPollAttempts: processing-watch budget. A record
//     still processing after MaxPollAttempts polls moves to timed_out.
//   - NegotiationRetries: extra negotiation attempts before surfacing a
//     NegotiationError to the caller (0 = fail fast).
type Config struct {
	BackendBaseURL     string
	RequestTimeout     time.Duration
	PollInterval       time.Duration
	MaxPollAttempts    int
	NegotiationRetries int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.PollInterval = 5 * time.Second
	c.MaxPollAttempts = 60
	c.NegotiationRetries = 0
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
