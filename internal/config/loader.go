package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the bridge.
// Zero values mean "unspecified" and are replaced by Default values.
type Config struct {
	Addr              string   `json:"addr" yaml:"addr" toml:"addr" mapstructure:"addr"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level" mapstructure:"log_level"`
	AllowedOrigins    []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins" mapstructure:"allowed_origins"`
	LoadTimeout       string   `json:"load_timeout" yaml:"load_timeout" toml:"load_timeout" mapstructure:"load_timeout"`
	CollectorEndpoint string   `json:"collector_endpoint" yaml:"collector_endpoint" toml:"collector_endpoint" mapstructure:"collector_endpoint"`
	ContainerEndpoint string   `json:"container_endpoint" yaml:"container_endpoint" toml:"container_endpoint" mapstructure:"container_endpoint"`
	ResourceDir       string   `json:"resource_dir" yaml:"resource_dir" toml:"resource_dir" mapstructure:"resource_dir"`
	StoragePath       string   `json:"storage_path" yaml:"storage_path" toml:"storage_path" mapstructure:"storage_path"`
	MaxBatchSize      int      `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size" mapstructure:"max_batch_size"`
	MaxRetries        int      `json:"max_retries" yaml:"max_retries" toml:"max_retries" mapstructure:"max_retries"`
	APIKey            string   `json:"api_key" yaml:"api_key" toml:"api_key" mapstructure:"api_key"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		LoadTimeout:       "2s",
		CollectorEndpoint: "http://localhost:3000/hits",
		ResourceDir:       "containers",
		StoragePath:       "tagmanager_hits.json",
		MaxBatchSize:      10,
		MaxRetries:        3,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults fills unspecified fields from Default.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LoadTimeout == "" {
		c.LoadTimeout = d.LoadTimeout
	}
	if c.CollectorEndpoint == "" {
		c.CollectorEndpoint = d.CollectorEndpoint
	}
	if c.ResourceDir == "" {
		c.ResourceDir = d.ResourceDir
	}
	if c.StoragePath == "" {
		c.StoragePath = d.StoragePath
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}

// LoadTimeoutDuration parses LoadTimeout.
func (c Config) LoadTimeoutDuration() (time.Duration, error) {
	if c.LoadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LoadTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid load_timeout %q: %w", c.LoadTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout)
	}
	return d, nil
}
