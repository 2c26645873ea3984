package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetDataDir returns the per-user data directory for sitegrab.
// On Linux this is $XDG_DATA_HOME/sitegrab or ~/.local/share/sitegrab.
func GetDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// DefaultHistoryPath returns the default location of the run history database.
func DefaultHistoryPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// SafeJoin joins a slash-separated relative path onto root and fails if the
// result would land outside root.
func SafeJoin(root, rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative and non-empty", rel)
	}
	joined := filepath.Join(root, filepath.FromSlash(rel))
	if !IsWithin(root, joined) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return joined, nil
}

// IsWithin reports whether path is root or lies beneath it.
func IsWithin(root, path string) bool {
	r, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return r == "." || (r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)))
}
