// Package config loads ddoc settings from defaults, .ddoc.yaml and DDOC_*
// environment variables.
package config

import (
	"github.com/phobologic/ddoc/internal/build"
	"github.com/phobologic/ddoc/internal/parse"
	"github.com/phobologic/ddoc/internal/toon"
)

// Config represents the complete ddoc configuration.
type Config struct {
	Domain  string        `yaml:"domain" mapstructure:"domain"` // directive/role prefix
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Build   BuildConfig   `yaml:"build" mapstructure:"build"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PathsConfig selects documentation sources.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for sources
	Exclude []string `yaml:"exclude" mapstructure:"exclude"` // glob patterns to skip
}

// BuildConfig tunes the documentation build.
type BuildConfig struct {
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes
	Strict      bool  `yaml:"strict" mapstructure:"strict"`               // diagnostics fail the build
	Nitpicky    bool  `yaml:"nitpicky" mapstructure:"nitpicky"`           // log unresolved references
}

// StorageConfig locates the persisted registry.
type StorageConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`             // relative to the project root
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"` // lookup cache entries
}

// OutputConfig controls report encoding.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // toon, json or yaml
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Domain: parse.DefaultDomain,
		Paths: PathsConfig{
			Include: []string{"**/*.rst", "**/*.md"},
			Exclude: []string{},
		},
		Build: BuildConfig{
			MaxFileSize: build.DefaultMaxFileSize,
		},
		Storage: StorageConfig{
			Path:      ".ddoc/ddoc.db",
			CacheSize: 1024,
		},
		Output: OutputConfig{
			Format: toon.FormatTOON,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
