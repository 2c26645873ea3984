package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
)

// WriteTree prints an indented listing of dir with file sizes, directories first.
func WriteTree(w io.Writer, dir string) error {
	fmt.Fprintf(w, "%s/\n", filepath.Base(filepath.Clean(dir)))
	return writeTreeLevel(w, dir, "  ")
}

func writeTreeLevel(w io.Writer, dir, indent string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(w, "%s%s/\n", indent, e.Name())
			if err := writeTreeLevel(w, filepath.Join(dir, e.Name()), indent+"  "); err != nil {
				return err
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s (%s)\n", indent, e.Name(), humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
