package main

import (
	"os"
	"strings"
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
	"github.com/Tap30/tagmanager-go/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settingKeys maps config keys to the flag names that override them.
var settingKeys = map[string]string{
	"addr":               "addr",
	"log_level":          "log-level",
	"allowed_origins":    "allowed-origins",
	"load_timeout":       "load-timeout",
	"collector_endpoint": "collector-endpoint",
	"container_endpoint": "container-endpoint",
	"resource_dir":       "resource-dir",
	"storage_path":       "storage-path",
	"max_batch_size":     "max-batch-size",
	"max_retries":        "max-retries",
	"api_key":            "api-key",
}

// loadSettings resolves the configuration: defaults, then the config file,
// then TAGBRIDGE_* environment variables, then flags set on cmd.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		fileCfg, err := config.Load(cfgFile)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg.WithDefaults()
	}

	v := viper.New()
	v.SetEnvPrefix("TAGBRIDGE")
	v.AutomaticEnv()
	for key, flag := range settingKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return cfg, err
			}
		}
	}

	if v.IsSet("addr") {
		cfg.Addr = v.GetString("addr")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("allowed_origins") {
		cfg.AllowedOrigins = splitCSV(v.GetString("allowed_origins"))
	}
	if v.IsSet("load_timeout") {
		cfg.LoadTimeout = v.GetString("load_timeout")
	}
	if v.IsSet("collector_endpoint") {
		cfg.CollectorEndpoint = v.GetString("collector_endpoint")
	}
	if v.IsSet("container_endpoint") {
		cfg.ContainerEndpoint = v.GetString("container_endpoint")
	}
	if v.IsSet("resource_dir") {
		cfg.ResourceDir = v.GetString("resource_dir")
	}
	if v.IsSet("storage_path") {
		cfg.StoragePath = v.GetString("storage_path")
	}
	if v.IsSet("max_batch_size") {
		cfg.MaxBatchSize = v.GetInt("max_batch_size")
	}
	if v.IsSet("max_retries") {
		cfg.MaxRetries = v.GetInt("max_retries")
	}
	if v.IsSet("api_key") {
		cfg.APIKey = v.GetString("api_key")
	}

	if _, err := cfg.LoadTimeoutDuration(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newLogger builds the process logger writing human-readable lines to stderr.
func newLogger(cfg config.Config, component string) *adapters.ZerologLoggerAdapter {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return adapters.NewConsoleLoggerAdapter(w, adapters.ParseLogLevel(cfg.LogLevel), component)
}
