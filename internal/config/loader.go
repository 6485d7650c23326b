package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader for the given project root.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (LATTICE_*)
// 2. Config file (.lattice/config.yml or .lattice/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".lattice")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("LATTICE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("debounce_ms")
	v.BindEnv("batch_size")
	v.BindEnv("max_file_size_kb")
	v.BindEnv("ast_enabled")
	v.BindEnv("graph.enabled")
	v.BindEnv("graph.driver")
	v.BindEnv("graph.path")
	v.BindEnv("sync.concurrency")
	v.BindEnv("sync.rate_limit")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers the default configuration values with viper.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("debounce_ms", defaults.DebounceMs)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("max_file_size_kb", defaults.MaxFileSizeKB)
	v.SetDefault("ast_enabled", defaults.ASTEnabled)
	v.SetDefault("graph.enabled", defaults.Graph.Enabled)
	v.SetDefault("graph.driver", defaults.Graph.Driver)
	v.SetDefault("graph.path", defaults.Graph.Path)
	v.SetDefault("paths.extensions", defaults.Paths.Extensions)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("sync.concurrency", defaults.Sync.Concurrency)
	v.SetDefault("sync.rate_limit", defaults.Sync.RateLimit)
}
