package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"peerswap/native/peerswap"
	"peerswap/observability/logging"
	"peerswap/observability/otel"
	"peerswap/rpc"
)

const (
	// EnvRPCSecret overrides Auth.JWTSecret.
	EnvRPCSecret = "PEERSWAP_RPC_SECRET"
	// EnvEnvironment overrides Environment.
	EnvEnvironment = "PEERSWAP_ENV"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Environment string `toml:"Environment"`

	Genesis   GenesisConfig   `toml:"Genesis"`
	Log       LogConfig       `toml:"Log"`
	Auth      AuthConfig      `toml:"Auth"`
	RateLimit RateLimitConfig `toml:"RateLimit"`
	Telemetry TelemetryConfig `toml:"Telemetry"`
	Indexer   IndexerConfig   `toml:"Indexer"`
}

type GenesisConfig struct {
	File string `toml:"File"`
}

type LogConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// AuthConfig configures caller tokens. JWTSecret is normally left empty in the
// file and supplied through PEERSWAP_RPC_SECRET.
type AuthConfig struct {
	JWTSecret        string `toml:"JWTSecret"`
	Issuer           string `toml:"Issuer"`
	Audience         string `toml:"Audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds"`
}

type RateLimitConfig struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// IndexerConfig enables the event indexer. DSN accepts a sqlite path or URI
// or a postgres connection string; an empty DSN with Enabled set stores
// events in DataDir/events.db.
type IndexerConfig struct {
	Enabled     bool   `toml:"Enabled"`
	DSN         string `toml:"DSN"`
	EventBuffer int    `toml:"EventBuffer"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		RPCAddress:  ":8080",
		DataDir:     "./peerswap-data",
		Environment: "local",
		Genesis:     GenesisConfig{File: "genesis.yaml"},
		Log:         LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Auth:        AuthConfig{Issuer: "peerswapd", ClockSkewSeconds: 120},
		RateLimit:   RateLimitConfig{RequestsPerMinute: 600, Burst: 60},
		Telemetry:   TelemetryConfig{Endpoint: "localhost:4318", Insecure: true, SampleRatio: 1},
		Indexer:     IndexerConfig{Enabled: true, EventBuffer: 64},
	}
}

// Load reads the configuration at path, writing a default file first when
// none exists. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = Default()
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if secret, ok := lookup(EnvRPCSecret); ok && strings.TrimSpace(secret) != "" {
		c.Auth.JWTSecret = strings.TrimSpace(secret)
	}
	if env, ok := lookup(EnvEnvironment); ok && strings.TrimSpace(env) != "" {
		c.Environment = strings.TrimSpace(env)
	}
}

// resolvePaths anchors relative file locations at the config file's
// directory.
func (c *Config) resolvePaths(configPath string) {
	base := filepath.Dir(configPath)
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.DataDir = anchor(c.DataDir)
	c.Genesis.File = anchor(c.Genesis.File)
	c.Log.File = anchor(c.Log.File)
	if c.Indexer.Enabled && strings.TrimSpace(c.Indexer.DSN) == "" {
		c.Indexer.DSN = filepath.Join(c.DataDir, "events.db")
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// LevelDBPath is where the node keeps its state.
func (c *Config) LevelDBPath() string {
	return filepath.Join(c.DataDir, "state")
}

// LoggingOptions adapts the [Log] section.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// RPCConfig adapts the [Auth], [RateLimit] and [Indexer] sections.
func (c *Config) RPCConfig() rpc.Config {
	return rpc.Config{
		JWT: rpc.JWTConfig{
			HMACSecret: c.Auth.JWTSecret,
			Issuer:     c.Auth.Issuer,
			Audience:   c.Auth.Audience,
			ClockSkew:  time.Duration(c.Auth.ClockSkewSeconds) * time.Second,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: c.RateLimit.RequestsPerMinute,
			Burst:             c.RateLimit.Burst,
		},
		EventBuffer: c.Indexer.EventBuffer,
	}
}

// TelemetryConfig adapts the [Telemetry] section for service.
func (c *Config) TelemetryConfig(service string) otel.Config {
	return otel.Config{
		ServiceName:    service,
		ServiceVersion: peerswap.ContractVersion,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		Headers:        otel.ParseHeaders(c.Telemetry.Headers),
		Metrics:        c.Telemetry.Metrics,
		Traces:         c.Telemetry.Traces,
		SampleRatio:    c.Telemetry.SampleRatio,
	}
}
