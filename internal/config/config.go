// Package config provides the client configuration loaded from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the swap client.
type Config struct {
	// Registry is the LP discovery registry.
	Registry RegistryConfig `yaml:"registry"`

	// Quotes controls quote fan-out behavior.
	Quotes QuoteConfig `yaml:"quotes"`

	// Swap controls the coordination loop.
	Swap SwapConfig `yaml:"swap"`

	// Storage holds local persistence settings.
	Storage StorageConfig `yaml:"storage"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging"`
}

// RegistryConfig holds LP discovery settings.
type RegistryConfig struct {
	// URL of the discovery registry.
	URL string `yaml:"url"`
	// Timeout for registry HTTP calls.
	Timeout time.Duration `yaml:"timeout"`
	// ShowAllTiers includes community LPs in routing. When false only
	// operator-run (tier 1) LPs are used, falling back to all LPs if no
	// tier-1 LP is online.
	ShowAllTiers bool `yaml:"show_all_tiers"`
}

// QuoteConfig holds quote engine settings.
type QuoteConfig struct {
	// Timeout per LP quote request.
	LPTimeout time.Duration `yaml:"lp_timeout"`
	// RefreshInterval between reference-rate re-pricings in watch mode.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// SwapConfig holds coordination settings.
type SwapConfig struct {
	// PollInterval between status polls while the realtime channel is down.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SessionExpiry bounds how long a persisted session may be resumed.
	// Must not exceed the shortest HTLC timelock in use.
	SessionExpiry time.Duration `yaml:"session_expiry"`
	// NotifyAttempts bounds retries of commit-path notifications.
	NotifyAttempts int `yaml:"notify_attempts"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:     "http://162.19.251.75:3003",
			Timeout: 3 * time.Second,
		},
		Quotes: QuoteConfig{
			LPTimeout:       4 * time.Second,
			RefreshInterval: 10 * time.Second,
		},
		Swap: SwapConfig{
			PollInterval:   5 * time.Second,
			SessionExpiry:  2 * time.Hour,
			NotifyAttempts: 3,
		},
		Storage: StorageConfig{
			DataDir: "~/.pna-swap",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file from dir, creating it with defaults on first run.
func Load(dir string) (*Config, error) {
	dir = ExpandPath(dir)
	path := filepath.Join(dir, "config.yaml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dir
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = dir
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
