// SPDX-License-Identifier: MIT

// Package config loads engine configuration from an optional YAML file with
// environment overrides. Playback policy values (readiness threshold, rewind
// margins, throttles) live here, not as constants in the controller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Playback tunes the session controller and status channel.
type Playback struct {
	// PollInterval is the fixed status-poll interval.
	PollInterval time.Duration `yaml:"pollInterval"`
	// MaxProcessingWait bounds how long a session waits for the transcode
	// to become playable before giving up.
	MaxProcessingWait time.Duration `yaml:"maxProcessingWait"`
	// ReadyPercent is the encode progress at which the server starts
	// serving partial output and playback may begin.
	ReadyPercent float64 `yaml:"readyPercent"`
	// SaveInterval is the position-tracking tick.
	SaveInterval time.Duration `yaml:"saveInterval"`
	// SaveDeltaSec suppresses position saves that moved less than this
	// many seconds since the last persisted value.
	SaveDeltaSec float64 `yaml:"saveDeltaSec"`
	// ErrorRewindSec is subtracted from the player time captured at error
	// time.
	ErrorRewindSec float64 `yaml:"errorRewindSec"`
	// ReattachRewindSec is the extra rewind applied when resolving the
	// reattach offset.
	ReattachRewindSec float64 `yaml:"reattachRewindSec"`
	// EdgeWindowSec is the distance from the buffered edge below which the
	// reattach rewind is taken from the captured position instead of the
	// raw error time.
	EdgeWindowSec float64 `yaml:"edgeWindowSec"`
	// SubtitleLanguages lists preferred subtitle languages in order.
	SubtitleLanguages []string `yaml:"subtitleLanguages"`
}

// Config is the daemon configuration.
type Config struct {
	APIBaseURL string   `yaml:"apiBaseUrl"`
	APIToken   string   `yaml:"apiToken"`
	DataDir    string   `yaml:"dataDir"`
	Listen     string   `yaml:"listen"`
	LogLevel   string   `yaml:"logLevel"`
	RedisAddr  string   `yaml:"redisAddr"`
	Playback   Playback `yaml:"playback"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:  "data",
		Listen:   "127.0.0.1:8090",
		LogLevel: "info",
		Playback: Playback{
			PollInterval:      8 * time.Second,
			MaxProcessingWait: 30 * time.Minute,
			ReadyPercent:      40,
			SaveInterval:      20 * time.Second,
			SaveDeltaSec:      5,
			ErrorRewindSec:    5,
			ReattachRewindSec: 10,
			EdgeWindowSec:     30,
			SubtitleLanguages: []string{"en"},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// given), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.APIBaseURL = ParseString("REELROOM_API_URL", c.APIBaseURL)
	c.APIToken = ParseString("REELROOM_API_TOKEN", c.APIToken)
	c.DataDir = ParseString("REELROOM_DATA_DIR", c.DataDir)
	c.Listen = ParseString("REELROOM_LISTEN", c.Listen)
	c.LogLevel = ParseString("REELROOM_LOG_LEVEL", c.LogLevel)
	c.RedisAddr = ParseString("REELROOM_REDIS_ADDR", c.RedisAddr)

	c.Playback.PollInterval = ParseDuration("REELROOM_POLL_INTERVAL", c.Playback.PollInterval)
	c.Playback.MaxProcessingWait = ParseDuration("REELROOM_MAX_PROCESSING_WAIT", c.Playback.MaxProcessingWait)
	c.Playback.ReadyPercent = ParseFloat("REELROOM_READY_PERCENT", c.Playback.ReadyPercent)
	c.Playback.SaveInterval = ParseDuration("REELROOM_SAVE_INTERVAL", c.Playback.SaveInterval)
	c.Playback.SaveDeltaSec = ParseFloat("REELROOM_SAVE_DELTA", c.Playback.SaveDeltaSec)
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("config: apiBaseUrl is required")
	}
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("config: apiBaseUrl: %w", err)
	}
	if c.Playback.PollInterval <= 0 {
		return fmt.Errorf("config: pollInterval must be positive")
	}
	if c.Playback.SaveInterval <= 0 {
		return fmt.Errorf("config: saveInterval must be positive")
	}
	if c.Playback.ReadyPercent < 0 || c.Playback.ReadyPercent > 100 {
		return fmt.Errorf("config: readyPercent must be within [0,100]")
	}
	if c.Playback.SaveDeltaSec < 0 || c.Playback.ErrorRewindSec < 0 ||
		c.Playback.ReattachRewindSec < 0 || c.Playback.EdgeWindowSec < 0 {
		return fmt.Errorf("config: rewind and delta values must not be negative")
	}
	return nil
}
