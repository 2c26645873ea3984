// Package errors defines the error values shared by the sitegrab packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrConfigFormat      = fmt.Errorf("unsupported config file format")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists")

	// Settings validation errors.
	ErrTimeoutNegative      = fmt.Errorf("timeout cannot be negative")
	ErrConcurrencyInvalid   = fmt.Errorf("concurrency must be at least 1")
	ErrSizeLimitNegative    = fmt.Errorf("size limits cannot be negative")
	ErrRetriesNegative      = fmt.Errorf("retries cannot be negative")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidLogFormat     = fmt.Errorf("invalid log format")
	ErrInvalidBoolValue     = fmt.Errorf("invalid boolean value")
	ErrUnknownConfigKey     = fmt.Errorf("unknown configuration key")
	ErrEmptyUserAgent       = fmt.Errorf("user_agent cannot be empty")
	ErrNoResourceKinds      = fmt.Errorf("at least one resource kind must be included")
	ErrInvalidBlockedExt    = fmt.Errorf("blocked extensions must start with a dot")
	ErrArchiveFormatUnknown = fmt.Errorf("unsupported archive format")

	// Job errors.
	ErrInvalidJob = fmt.Errorf("invalid job")
	ErrInvalidURL = fmt.Errorf("invalid URL")

	// Scoping and paths.
	ErrScopeRejected = fmt.Errorf("reference out of scope")
	ErrInvalidPath   = fmt.Errorf("invalid path")

	// Fetching.
	ErrFetchFailed       = fmt.Errorf("fetch failed")
	ErrRootFetchFailed   = fmt.Errorf("root document fetch failed")
	ErrFileTooLarge      = fmt.Errorf("file exceeds the maximum allowed size")
	ErrTotalSizeExceeded = fmt.Errorf("total download size limit exceeded")

	// Output.
	ErrParseFailed = fmt.Errorf("document could not be parsed")
	ErrWriteFailed = fmt.Errorf("write failed")

	// History.
	ErrHistoryUnavailable = fmt.Errorf("history store unavailable")
	ErrRunNotFound        = fmt.Errorf("run not found")
	ErrRunAmbiguous       = fmt.Errorf("run ID prefix matches several runs")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidLogFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidLogFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidLogFormat, format)
}

// ErrInvalidBlockedExtWithValue wraps ErrInvalidBlockedExt with the offending value.
func ErrInvalidBlockedExtWithValue(ext string) error {
	return fmt.Errorf("%w: %q", ErrInvalidBlockedExt, ext)
}

// ErrUnknownConfigKeyWithName wraps ErrUnknownConfigKey with the key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrConfigFormatWithExt wraps ErrConfigFormat with the file extension.
func ErrConfigFormatWithExt(ext string) error {
	return fmt.Errorf("%w: %q (use .yaml, .yml or .toml)", ErrConfigFormat, ext)
}

// ErrArchiveFormatWithName wraps ErrArchiveFormatUnknown with the archive file name.
func ErrArchiveFormatWithName(name string) error {
	return fmt.Errorf("%w: %s (use .zip or .tar.gz)", ErrArchiveFormatUnknown, name)
}
