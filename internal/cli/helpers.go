package cli

import (
	"fmt"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/config"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	EnvFile    *string
	Verbose    *bool
	LogFormat  *string
)

// loadConfig loads the configuration file, applies environment overrides and
// the global logging flags, and initializes the logger from the result.
func loadConfig() (*config.Config, error) {
	envFile := ""
	if EnvFile != nil {
		envFile = *EnvFile
	}

	cfg, err := config.Load(getConfigPath(), envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if LogFormat != nil && *LogFormat != "" {
		cfg.Settings.LogFormat = *LogFormat
	}
	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	format, err := logger.ParseFormat(cfg.Settings.LogFormat)
	if err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Settings.LogLevel); err != nil {
		return err
	}
	logger.InitLogger(cfg.Settings.LogLevel, format)
	return nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// an empty path makes LoadConfig report a descriptive error
		logger.Warn("failed to get default config path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}
