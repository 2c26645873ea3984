// Package archive packs finished mirrors into .zip or .tar.gz files and
// unpacks them again for browsing.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
)

// Manager handles archive creation and extraction.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// FormatFor picks the archive format from the file name: .zip, or .tar.gz
// and .tgz.
func FormatFor(archivePath string) (archives.Archiver, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return archives.Zip{}, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}, nil
	}
	return nil, errors.ErrArchiveFormatWithName(filepath.Base(archivePath))
}

// Create packs the contents of sourceDir into archivePath. Paths inside the
// archive are relative to sourceDir. The archive is written next to its final
// location and renamed into place once complete.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	format, err := FormatFor(archivePath)
	if err != nil {
		return err
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for archive: %w", err)
	}
	if fsutil.IsWithin(absSource, absArchive) {
		return fmt.Errorf("%w: archive %s must not be inside %s", errors.ErrInvalidPath, absArchive, absSource)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absSource + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	if err := fsutil.EnsureFileDir(absArchive); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(absArchive), ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := format.Archive(ctx, tmp, archiveFiles); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Chmod(tmpName, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tmpName, absArchive); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	logger.Debug("archive created", logger.Fields{"path": absArchive, "files": len(archiveFiles)})
	return nil
}

// ExtractAll extracts all regular files from an archive into destDir.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return am.extractEntry(fsys, path, destDir, d)
	})
}

// extractEntry writes a single archive entry below destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath, err := fsutil.SafeJoin(destDir, path)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPath, err)
	}

	if d.IsDir() {
		return fsutil.EnsureDir(targetPath)
	}
	// symlinks and devices have no place in a mirror
	if !d.Type().IsRegular() {
		return nil
	}

	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dstFile, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}
	return nil
}
