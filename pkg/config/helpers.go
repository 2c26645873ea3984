package config

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/sitegrab/pkg/errors"
)

// field binds one dotted configuration key to its Settings member.
type field struct {
	get func(s *Settings) string
	set func(s *Settings, value string) error
}

func boolField(ptr func(s *Settings) *bool) field {
	return field{
		get: func(s *Settings) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidBoolValue, "%q", v)
			}
			*ptr(s) = b
			return nil
		},
	}
}

func intField(ptr func(s *Settings) *int) field {
	return field{
		get: func(s *Settings) string { return strconv.Itoa(*ptr(s)) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "invalid integer %q", v)
			}
			*ptr(s) = n
			return nil
		},
	}
}

func durationField(ptr func(s *Settings) *time.Duration) field {
	return field{
		get: func(s *Settings) string { return ptr(s).String() },
		set: func(s *Settings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "invalid duration %q", v)
			}
			*ptr(s) = d
			return nil
		},
	}
}

func stringField(ptr func(s *Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *ptr(s) },
		set: func(s *Settings, v string) error {
			*ptr(s) = v
			return nil
		},
	}
}

func sizeField(ptr func(s *Settings) *ByteSize) field {
	return field{
		get: func(s *Settings) string { return ptr(s).String() },
		set: func(s *Settings, v string) error { return ptr(s).UnmarshalText([]byte(v)) },
	}
}

var fields = map[string]field{
	"concurrency":   intField(func(s *Settings) *int { return &s.Concurrency }),
	"timeout":       durationField(func(s *Settings) *time.Duration { return &s.Timeout }),
	"user_agent":    stringField(func(s *Settings) *string { return &s.UserAgent }),
	"retries":       intField(func(s *Settings) *int { return &s.Retries }),
	"retry_backoff": durationField(func(s *Settings) *time.Duration { return &s.RetryBackoff }),

	"preserve_structure":    boolField(func(s *Settings) *bool { return &s.PreserveStructure }),
	"include.images":        boolField(func(s *Settings) *bool { return &s.Include.Images }),
	"include.stylesheets":   boolField(func(s *Settings) *bool { return &s.Include.Stylesheets }),
	"include.scripts":       boolField(func(s *Settings) *bool { return &s.Include.Scripts }),
	"include.inline_styles": boolField(func(s *Settings) *bool { return &s.Include.InlineStyles }),
	"max_file_size":         sizeField(func(s *Settings) *ByteSize { return &s.MaxFileSize }),
	"max_total_size":        sizeField(func(s *Settings) *ByteSize { return &s.MaxTotalSize }),
	"pretty":                boolField(func(s *Settings) *bool { return &s.Pretty }),
	"log_level":             stringField(func(s *Settings) *string { return &s.LogLevel }),
	"log_format":            stringField(func(s *Settings) *string { return &s.LogFormat }),
	"history_db":            stringField(func(s *Settings) *string { return &s.HistoryDB }),
	"metrics_file":          stringField(func(s *Settings) *string { return &s.MetricsFile }),
	"blocked_extensions": {
		get: func(s *Settings) string { return strings.Join(s.BlockedExtensions, ",") },
		set: func(s *Settings, v string) error {
			s.BlockedExtensions = nil
			for _, ext := range strings.Split(v, ",") {
				if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
					s.BlockedExtensions = append(s.BlockedExtensions, ext)
				}
			}
			return nil
		},
	},
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue sets a configuration value by key. Nested keys use dots, e.g.
// "include.scripts". blocked_extensions takes a comma separated list.
func (c *Config) SetValue(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	return errors.Wrapf(f.set(&c.Settings, strings.TrimSpace(value)), "%s", key)
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return f.get(&c.Settings), nil
}

// ToMap returns every key with its current value.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(fields))
	for k, f := range fields {
		result[k] = f.get(&c.Settings)
	}
	return result
}
