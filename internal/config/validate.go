package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/toon"
)

var (
	// ErrInvalidDomain indicates an empty or malformed domain prefix
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidSize indicates a non-positive size setting
	ErrInvalidSize = errors.New("invalid size")

	// ErrEmptyStoragePath indicates a missing registry database path
	ErrEmptyStoragePath = errors.New("empty storage path")

	// ErrInvalidFormat indicates an unsupported output or log format
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidLevel indicates an unknown log level
	ErrInvalidLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete. Every
// problem found is reported.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Domain == "" || strings.ContainsAny(cfg.Domain, " \t\n:`") {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDomain, cfg.Domain))
	}

	if _, err := discover.CompilePatterns(cfg.Paths.Include); err != nil {
		errs = append(errs, fmt.Errorf("%w: paths.include: %v", ErrInvalidPattern, err))
	}
	if _, err := discover.CompilePatterns(cfg.Paths.Exclude); err != nil {
		errs = append(errs, fmt.Errorf("%w: paths.exclude: %v", ErrInvalidPattern, err))
	}

	if cfg.Build.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: build.max_file_size must be positive, got %d", ErrInvalidSize, cfg.Build.MaxFileSize))
	}

	if strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, ErrEmptyStoragePath)
	}
	if cfg.Storage.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: storage.cache_size must be positive, got %d", ErrInvalidSize, cfg.Storage.CacheSize))
	}

	if !slices.Contains(toon.Formats, cfg.Output.Format) {
		errs = append(errs, fmt.Errorf("%w: output.format must be one of %s, got '%s'",
			ErrInvalidFormat, strings.Join(toon.Formats, ", "), cfg.Output.Format))
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(cfg.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("%w: log.format must be 'text' or 'json', got '%s'", ErrInvalidFormat, cfg.Log.Format))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a log.level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidLevel, s)
	}
	return level, nil
}
