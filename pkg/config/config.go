// Package config provides configuration loading and validation for relimport.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel validation errors.
var (
	ErrEmptyRoot        = errors.New("root directory must not be empty")
	ErrInvalidAlias     = errors.New("alias prefix must be non-empty and end with '/'")
	ErrInvalidExtension = errors.New("extension must start with '.'")
	ErrNoExtensions     = errors.New("at least one extension is required")
	ErrInvalidFileSize  = errors.New("invalid max file size")
	ErrInvalidCacheSize = errors.New("cache size must be positive")
	ErrInvalidLogFormat = errors.New("log format must be text or json")
	ErrInvalidLogLevel  = errors.New("unknown log level")
)

// Config is the top-level configuration struct for relimport.
// Field tags use mapstructure for viper unmarshalling and yaml for display.
type Config struct {
	Root               string        `mapstructure:"root"                yaml:"root"`
	Alias              string        `mapstructure:"alias"               yaml:"alias"`
	DefaultExtension   string        `mapstructure:"default_extension"   yaml:"default_extension"`
	ResolvedExtensions []string      `mapstructure:"resolved_extensions" yaml:"resolved_extensions"`
	Extensions         []string      `mapstructure:"extensions"          yaml:"extensions"`
	MatchBareImports   bool          `mapstructure:"match_bare_imports"  yaml:"match_bare_imports"`
	SkipVendor         bool          `mapstructure:"skip_vendor"         yaml:"skip_vendor"`
	MaxFileSize        string        `mapstructure:"max_file_size"       yaml:"max_file_size"`
	CacheSize          int           `mapstructure:"cache_size"          yaml:"cache_size"`
	Logging            LoggingConfig `mapstructure:"logging"             yaml:"logging"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration: root "src", alias "@/",
// default extension ".ts".
func Default() Config {
	return Config{
		Root:               DefaultRoot,
		Alias:              DefaultAlias,
		DefaultExtension:   DefaultExtension,
		ResolvedExtensions: append([]string(nil), DefaultResolvedExtensions...),
		Extensions:         append([]string(nil), DefaultExtensions...),
		MatchBareImports:   DefaultMatchBareImports,
		SkipVendor:         DefaultSkipVendor,
		MaxFileSize:        DefaultMaxFileSize,
		CacheSize:          DefaultCacheSize,
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// MaxFileSizeBytes returns the parsed max_file_size, or 0 when unlimited.
func (c *Config) MaxFileSizeBytes() (uint64, error) {
	if c.MaxFileSize == "" || c.MaxFileSize == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidFileSize, c.MaxFileSize, err)
	}

	return size, nil
}

// Validate checks semantic constraints that the schema cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return ErrEmptyRoot
	}

	if c.Alias == "" || !strings.HasSuffix(c.Alias, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidAlias, c.Alias)
	}

	extErr := validateExtensions(append([]string{c.DefaultExtension}, c.ResolvedExtensions...))
	if extErr != nil {
		return extErr
	}

	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}

	extErr = validateExtensions(c.Extensions)
	if extErr != nil {
		return extErr
	}

	_, sizeErr := c.MaxFileSizeBytes()
	if sizeErr != nil {
		return sizeErr
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.CacheSize)
	}

	switch c.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	_, levelErr := c.Logging.SlogLevel()

	return levelErr
}

func validateExtensions(exts []string) error {
	for _, ext := range exts {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	return nil
}
