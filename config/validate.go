package config

import (
	"fmt"
	"net"
	"strings"

	"peerswap/observability/logging"
)

var validLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if _, _, err := net.SplitHostPort(c.RPCAddress); err != nil {
		return fmt.Errorf("config: RPCAddress: %w", err)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if level := strings.ToLower(strings.TrimSpace(c.Log.Level)); level != "" {
		if _, ok := validLevels[level]; !ok {
			return fmt.Errorf("config: Log.Level %q not one of debug, info, warn, error", c.Log.Level)
		}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("config: Log rotation limits must not be negative")
	}
	if c.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("config: Auth.ClockSkewSeconds must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: RateLimit values must not be negative")
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("config: RateLimit.Burst required when RequestsPerMinute is set")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: Telemetry.SampleRatio must be within [0, 1]")
	}
	if (c.Telemetry.Metrics || c.Telemetry.Traces) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("config: Telemetry.Endpoint required when exporters are enabled")
	}
	if c.Indexer.EventBuffer < 0 {
		return fmt.Errorf("config: Indexer.EventBuffer must not be negative")
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = logging.MaskValue(out.Auth.JWTSecret)
	}
	return out
}
