package config

import (
	"errors"
	"fmt"
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
	rootDir    string
	configFile string
}

// NewLoader creates a loader that looks for .ddoc.yaml in rootDir. A
// non-empty configFile is read instead and must exist.
func NewLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DDOC_*)
// 2. Config file (.ddoc.yaml or .ddoc.yml, or the explicit file)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".ddoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix("DDOC")
	v.AutomaticEnv()
	// DDOC_BUILD_MAX_FILE_SIZE -> build.max_file_size
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"domain",
		"paths.include",
		"paths.exclude",
		"build.max_file_size",
		"build.strict",
		"build.nitpicky",
		"storage.path",
		"storage.cache_size",
		"output.format",
		"log.level",
		"log.format",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .ddoc.yaml is fine; defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("domain", defaults.Domain)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.exclude", defaults.Paths.Exclude)

	v.SetDefault("build.max_file_size", defaults.Build.MaxFileSize)
	v.SetDefault("build.strict", defaults.Build.Strict)
	v.SetDefault("build.nitpicky", defaults.Build.Nitpicky)

	v.SetDefault("storage.path", defaults.Storage.Path)
	v.SetDefault("storage.cache_size", defaults.Storage.CacheSize)

	v.SetDefault("output.format", defaults.Output.Format)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// LoadFromDir loads configuration for the project at rootDir.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir, "").Load()
}
