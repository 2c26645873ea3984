package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. SITEGRAB_CONCURRENCY
// or SITEGRAB_INCLUDE_SCRIPTS.
const EnvPrefix = "SITEGRAB_"

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadEnvFile loads variables from path into the process environment
// without replacing variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load %s", path)
	}
	logger.Debug("loaded environment file", logger.Fields{"path": path})
	return nil
}

// ApplyEnv overrides settings from environment variables found by lookup.
// Pass os.LookupEnv for the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		value, ok := lookup(EnvName(key))
		if !ok {
			continue
		}
		if err := c.SetValue(key, value); err != nil {
			return errors.Wrapf(err, "environment variable %s", EnvName(key))
		}
	}
	return nil
}

// Load reads the config file at path, then applies environment overrides,
// including those from envFile when it is not empty.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	return cfg, nil
}
