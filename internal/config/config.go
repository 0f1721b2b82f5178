// Package config loads the replay CLI configuration from an optional YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config drives the captive-replay binary.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Replay  ReplayConfig  `yaml:"replay"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// NodeConfig mirrors the library's ingestion options.
type NodeConfig struct {
	ExecutablePath string `yaml:"executable_path"`
	ContextPath    string `yaml:"context_path"`
	Network        string `yaml:"network"`
	BufferSize     int    `yaml:"buffer_size"`
	StaggerMs      int    `yaml:"stagger_ms"`
}

// ReplayConfig selects what the binary does.
type ReplayConfig struct {
	Mode string `yaml:"mode"` // "single" | "replay" | "online"
	From uint32 `yaml:"from"`
	To   uint32 `yaml:"to"`
}

// LoggingConfig selects handler format and level.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig enables the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads path (if non-empty) and applies environment overrides on top of
// the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Node: NodeConfig{
			Network: "testnet",
		},
		Replay: ReplayConfig{
			Mode: "replay",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Node.ExecutablePath = getenvDefault("NODE_EXECUTABLE", cfg.Node.ExecutablePath)
	cfg.Node.ContextPath = getenvDefault("NODE_CONTEXT_PATH", cfg.Node.ContextPath)
	cfg.Node.Network = getenvDefault("NODE_NETWORK", cfg.Node.Network)
	cfg.Node.BufferSize = getenvInt("NODE_BUFFER_SIZE", cfg.Node.BufferSize)
	cfg.Node.StaggerMs = getenvInt("NODE_STAGGER_MS", cfg.Node.StaggerMs)

	cfg.Replay.Mode = getenvDefault("REPLAY_MODE", cfg.Replay.Mode)
	cfg.Replay.From = getenvUint32("REPLAY_FROM", cfg.Replay.From)
	cfg.Replay.To = getenvUint32("REPLAY_TO", cfg.Replay.To)

	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	cfg.Metrics.Address = getenvDefault("METRICS_ADDRESS", cfg.Metrics.Address)
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getenvUint32(key string, def uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return def
}
