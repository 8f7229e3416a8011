// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/reelroom/reelroom/internal/log"
)

// ParseString reads a string from an environment variable or returns the
// default value.
func ParseString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// ParseDuration reads a duration from an environment variable or returns the
// default value. Invalid values fall back to the default and are logged.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid duration, using default")
	}
	return defaultValue
}

// ParseFloat reads a float from an environment variable or returns the
// default value. Invalid values fall back to the default and are logged.
func ParseFloat(key string, defaultValue float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid float, using default")
	}
	return defaultValue
}
