package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDebounce indicates a non-positive debounce interval
	ErrInvalidDebounce = errors.New("invalid debounce interval")

	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidFileSize indicates a non-positive file size ceiling
	ErrInvalidFileSize = errors.New("invalid max file size")

	// ErrInvalidDriver indicates an unsupported graph driver
	ErrInvalidDriver = errors.New("invalid graph driver")

	// ErrEmptyGraphPath indicates a missing sqlite graph path
	ErrEmptyGraphPath = errors.New("empty graph path")

	// ErrNoExtensions indicates an empty extension allow-list
	ErrNoExtensions = errors.New("empty extension allow-list")

	// ErrInvalidSync indicates invalid initial-sync bounds
	ErrInvalidSync = errors.New("invalid sync settings")
)

// Validate checks that the configuration is valid and complete.
// Malformed configuration fails fast here, before any watching begins.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DebounceMs <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.DebounceMs))
	}
	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidBatchSize, cfg.BatchSize))
	}
	if cfg.MaxFileSizeKB <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size_kb must be positive, got %d", ErrInvalidFileSize, cfg.MaxFileSizeKB))
	}

	if cfg.Graph.Enabled {
		switch cfg.Graph.Driver {
		case "sqlite":
			if cfg.Graph.Path == "" {
				errs = append(errs, ErrEmptyGraphPath)
			}
		case "memory":
		default:
			errs = append(errs, fmt.Errorf("%w: %q (want sqlite or memory)", ErrInvalidDriver, cfg.Graph.Driver))
		}
	}

	if len(cfg.Paths.Extensions) == 0 {
		errs = append(errs, ErrNoExtensions)
	}
	for _, ext := range cfg.Paths.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("%w: extension %q must start with a dot", ErrNoExtensions, ext))
		}
	}

	if cfg.Sync.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidSync, cfg.Sync.Concurrency))
	}
	if cfg.Sync.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate_limit must be positive, got %d", ErrInvalidSync, cfg.Sync.RateLimit))
	}

	return errors.Join(errs...)
}
