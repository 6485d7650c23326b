package config

// Config represents the complete lattice configuration.
// It can be loaded from .lattice/config.yml with environment variable
// overrides (LATTICE_*).
type Config struct {
	DebounceMs    int         `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	BatchSize     int         `yaml:"batch_size" mapstructure:"batch_size"`
	MaxFileSizeKB int         `yaml:"max_file_size_kb" mapstructure:"max_file_size_kb"`
	ASTEnabled    bool        `yaml:"ast_enabled" mapstructure:"ast_enabled"`
	Graph         GraphConfig `yaml:"graph" mapstructure:"graph"`
	Paths         PathsConfig `yaml:"paths" mapstructure:"paths"`
	Sync          SyncConfig  `yaml:"sync" mapstructure:"sync"`
}

// GraphConfig configures the graph store the pipeline writes to.
type GraphConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "memory"
	Path    string `yaml:"path" mapstructure:"path"`     // sqlite database path
}

// PathsConfig defines which files the pipeline considers eligible.
type PathsConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // extension allow-list
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`         // glob patterns to skip
}

// SyncConfig bounds the initial full-project sync.
type SyncConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // parallel file workers
	RateLimit   int `yaml:"rate_limit" mapstructure:"rate_limit"`   // files per second
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		DebounceMs:    2000,
		BatchSize:     50,
		MaxFileSizeKB: 512,
		ASTEnabled:    true,
		Graph: GraphConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    ".lattice/graph.db",
		},
		Paths: PathsConfig{
			Extensions: []string{
				".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs",
				".c", ".cpp", ".cc", ".h", ".hpp", ".php", ".rb",
				".java", ".md", ".txt", ".yml", ".yaml", ".json",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				".lattice/**",
			},
		},
		Sync: SyncConfig{
			Concurrency: 8,
			RateLimit:   200,
		},
	}
}

// MaxFileSizeBytes returns the file size ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeKB) * 1024
}
