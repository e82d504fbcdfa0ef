package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configName is the config file name without extension.
const configName = ".relimport"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for relimport settings.
const envPrefix = "RELIMPORT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// dotEnvFile is loaded from the working directory before env binding.
const dotEnvFile = ".env"

// ErrSchemaViolation is returned when the config file does not match the schema.
var ErrSchemaViolation = errors.New("config file does not match schema")

//go:embed schema.json
var schemaJSON []byte

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load(dotEnvFile)

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// ValidateFile checks a YAML config file against the embedded JSON schema.
// Unknown keys are rejected here because viper silently ignores them.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var doc map[string]any

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if doc == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate config %s: %w", path, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, verr.String())
	}

	return fmt.Errorf("%w: %s: %s", ErrSchemaViolation, path, strings.Join(details, "; "))
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("root", DefaultRoot)
	viperCfg.SetDefault("alias", DefaultAlias)
	viperCfg.SetDefault("default_extension", DefaultExtension)
	viperCfg.SetDefault("resolved_extensions", DefaultResolvedExtensions)
	viperCfg.SetDefault("extensions", DefaultExtensions)
	viperCfg.SetDefault("match_bare_imports", DefaultMatchBareImports)

	viperCfg.SetDefault("skip_vendor", DefaultSkipVendor)
	viperCfg.SetDefault("max_file_size", DefaultMaxFileSize)

	viperCfg.SetDefault("cache_size", DefaultCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
}
