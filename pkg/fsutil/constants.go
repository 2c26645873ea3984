// Package fsutil provides the file system helpers used to lay out a mirror on disk.
package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	FileModeSecure  = 0o640 // -rw-r-----

	DirModeDefault = 0o755 // drwxr-xr-x
	DirModeSecure  = 0o750 // drwxr-x---
)

// AppName is used for per-user data and config locations.
const AppName = "sitegrab"
