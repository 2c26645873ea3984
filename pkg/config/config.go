// Package config provides configuration management for sitegrab.
// It handles loading, validating, and saving mirror settings. Configuration
// files are YAML or TOML, selected by extension; environment variables and
// an optional .env file override file values.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/download"
	"github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
	"github.com/glorpus-work/sitegrab/pkg/locate"
	"github.com/glorpus-work/sitegrab/pkg/mirror"
	"github.com/glorpus-work/sitegrab/pkg/pathmap"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings" toml:"settings"`
}

// Include selects the resource kinds that are mirrored.
type Include struct {
	Images       bool `yaml:"images" toml:"images"`
	Stylesheets  bool `yaml:"stylesheets" toml:"stylesheets"`
	Scripts      bool `yaml:"scripts" toml:"scripts"`
	InlineStyles bool `yaml:"inline_styles" toml:"inline_styles"`
}

// Settings represents general application settings.
type Settings struct {
	// Network settings
	Concurrency  int           `yaml:"concurrency" toml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout" toml:"timeout"`
	UserAgent    string        `yaml:"user_agent" toml:"user_agent"`
	Retries      int           `yaml:"retries" toml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" toml:"retry_backoff"`

	// Mirror settings
	PreserveStructure bool     `yaml:"preserve_structure" toml:"preserve_structure"`
	Include           Include  `yaml:"include" toml:"include"`
	MaxFileSize       ByteSize `yaml:"max_file_size" toml:"max_file_size"`   // 0 disables the limit
	MaxTotalSize      ByteSize `yaml:"max_total_size" toml:"max_total_size"` // 0 disables the limit
	BlockedExtensions []string `yaml:"blocked_extensions" toml:"blocked_extensions"`
	Pretty            bool     `yaml:"pretty" toml:"pretty"`

	// Output settings
	LogLevel    string `yaml:"log_level" toml:"log_level"`   // debug, info, warn, error
	LogFormat   string `yaml:"log_format" toml:"log_format"` // text, json
	HistoryDB   string `yaml:"history_db,omitempty" toml:"history_db,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty" toml:"metrics_file,omitempty"`
}

// Default configuration values.
const (
	DefaultConcurrency = download.DefaultConcurrency
	DefaultTimeout     = mirror.DefaultTimeout
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	historyDB, err := fsutil.DefaultHistoryPath()
	if err != nil {
		historyDB = ""
	}

	return &Config{
		Settings: Settings{
			Concurrency:       DefaultConcurrency,
			Timeout:           DefaultTimeout,
			UserAgent:         download.DefaultUserAgent,
			RetryBackoff:      mirror.DefaultRetryBackoff,
			PreserveStructure: true,
			Include: Include{
				Images:       true,
				Stylesheets:  true,
				Scripts:      true,
				InlineStyles: true,
			},
			MaxFileSize:       mirror.DefaultMaxFileSize,
			MaxTotalSize:      mirror.DefaultMaxTotalSize,
			BlockedExtensions: append([]string(nil), pathmap.DefaultBlockedExtensions...),
			Pretty:            true,
			LogLevel:          DefaultLogLevel,
			LogFormat:         DefaultLogFormat,
			HistoryDB:         historyDB,
		},
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, errors.ErrConfigFormatWithExt(ext)
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	f, err := formatOf(absPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", logger.Fields{"path": absPath})
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	if f == formatTOML {
		return LoadTOMLFromReader(file)
	}
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads YAML configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	return finish(config)
}

// LoadTOMLFromReader loads TOML configuration from an io.Reader.
func LoadTOMLFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()
	md, err := toml.NewDecoder(reader).Decode(config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.ErrUnknownConfigKeyWithName(undecoded[0].String())
	}
	return finish(config)
}

func finish(config *Config) (*Config, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	return config, nil
}

// SaveConfig saves configuration to a file in the format its extension names.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	f, err := formatOf(absPath)
	if err != nil {
		return err
	}

	var data []byte
	if f == formatTOML {
		data, err = c.ToTOML()
	} else {
		data, err = c.ToYAML()
	}
	if err != nil {
		return err
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}
	if err := fsutil.WriteFileAtomic(absPath, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return buf.Bytes(), nil
}

// ToTOML converts the config to TOML bytes.
func (c *Config) ToTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return buf.Bytes(), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	return validateSettings(c.Settings)
}

func validateSettings(s Settings) error {
	if s.Timeout < 0 || s.RetryBackoff < 0 {
		return errors.ErrTimeoutNegative
	}
	if s.Concurrency < 1 {
		return errors.ErrConcurrencyInvalid
	}
	if s.MaxFileSize < 0 || s.MaxTotalSize < 0 {
		return errors.ErrSizeLimitNegative
	}
	if s.Retries < 0 {
		return errors.ErrRetriesNegative
	}
	if strings.TrimSpace(s.UserAgent) == "" {
		return errors.ErrEmptyUserAgent
	}
	if !s.Kinds().Any() {
		return errors.ErrNoResourceKinds
	}
	for _, ext := range s.BlockedExtensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			return errors.ErrInvalidBlockedExtWithValue(ext)
		}
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	if _, err := logger.ParseFormat(s.LogFormat); err != nil {
		return errors.ErrInvalidLogFormatWithDetails(s.LogFormat)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// Kinds returns the resource kinds enabled by Include.
func (s Settings) Kinds() locate.Kinds {
	return locate.Kinds{
		Images:       s.Include.Images,
		Stylesheets:  s.Include.Stylesheets,
		Scripts:      s.Include.Scripts,
		InlineStyles: s.Include.InlineStyles,
	}
}

// MirrorOptions converts the settings into engine options.
func (s Settings) MirrorOptions() mirror.Options {
	return mirror.Options{
		Concurrency:       s.Concurrency,
		Timeout:           s.Timeout,
		UserAgent:         s.UserAgent,
		MaxFileSize:       int64(s.MaxFileSize),
		MaxTotalSize:      int64(s.MaxTotalSize),
		BlockedExtensions: append([]string(nil), s.BlockedExtensions...),
		Retries:           s.Retries,
		RetryBackoff:      s.RetryBackoff,
		Pretty:            s.Pretty,
	}
}

// applyDefaults replaces zero values that have no meaning of their own.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.Concurrency == 0 {
		c.Settings.Concurrency = defaults.Settings.Concurrency
	}
	if c.Settings.Timeout == 0 {
		c.Settings.Timeout = defaults.Settings.Timeout
	}
	if c.Settings.UserAgent == "" {
		c.Settings.UserAgent = defaults.Settings.UserAgent
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
	for i, ext := range c.Settings.BlockedExtensions {
		c.Settings.BlockedExtensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}
}
