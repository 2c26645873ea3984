package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ByteSize is a size in bytes that reads "50MB", "1.5 GiB" or a plain number.
type ByteSize int64

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*b = 0
		return nil
	}
	if strings.HasPrefix(s, "-") {
		return fmt.Errorf("invalid size %q", s)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*b = ByteSize(n)
		return nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// MarshalText implements encoding.TextMarshaler. Sizes that humanize without
// loss are written in their short form.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b ByteSize) String() string {
	if b <= 0 {
		return strconv.FormatInt(int64(b), 10)
	}
	s := humanize.Bytes(uint64(b))
	if n, err := humanize.ParseBytes(s); err == nil && n == uint64(b) {
		return s
	}
	return strconv.FormatInt(int64(b), 10)
}
