// Package config handles configuration for the story viewer client,
// including defaults, JSON overlay, and command-line flags (later stages
// override earlier ones).
package config

import "time"

// Config holds runtime settings for the story viewer CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the story server (http://host:port).
//   - DeviceID: stable identity of this device; authors and viewers are
//     identified by it.
//   - UserName: display name attached to uploads.
//   - AdminToken: optional bearer token unlocking the moderation surface.
//   - StoryDuration: per-story playback duration.
type Config struct {
	ServerEndpointAddr string
	DeviceID           string
	UserName           string
	AdminToken         string
	StoryDuration      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.StoryDuration = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
