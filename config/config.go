// Package config loads the capture daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marginote/marginote/capture"
	"github.com/marginote/marginote/popup"
)

// Config is the top-level daemon configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Browser    BrowserConfig    `yaml:"browser"`
	Capture    capture.Config   `yaml:"capture"`
	Popup      popup.Config     `yaml:"popup"`
	Credential CredentialConfig `yaml:"credential"`
	// Pages lists URLs opened as reading sessions at startup.
	Pages []string `yaml:"pages"`
}

// APIConfig points the relay at the blog's plugin endpoint.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// BrowserConfig controls the reading browser lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	BlockResources  []string      `yaml:"block_resources"`
	Headful         bool          `yaml:"headful"`
	XvfbDisplay     string        `yaml:"xvfb_display"`
}

// CredentialConfig picks where the API key lives.
type CredentialConfig struct {
	// Backend is "keyring" or "sqlite".
	Backend string `yaml:"backend"`
	// Service is the keyring service name.
	Service string `yaml:"service"`
	// DBPath is the sqlite database path for the sqlite backend.
	DBPath string `yaml:"db_path"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills the zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Credential.Backend == "" {
		c.Credential.Backend = "keyring"
	}
	if c.Credential.Service == "" {
		c.Credential.Service = "marginote"
	}
	if c.Credential.DBPath == "" {
		c.Credential.DBPath = "marginote.db"
	}
}
