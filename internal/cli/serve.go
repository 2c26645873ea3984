package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/archive"
	"github.com/glorpus-work/sitegrab/pkg/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve PATH",
		Short: "Serve a mirror for offline browsing",
		Long: `Serve a mirrored page over HTTP. PATH is either a mirror directory or
an archive created with "sitegrab mirror --archive", which is unpacked into a
temporary directory first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args[0], addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", DefaultServeAddr, "address to listen on")

	return cmd
}

func runServe(cmd *cobra.Command, path, addr string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	dir, cleanup, err := resolveServeDir(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(dir)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(cmd.Context(), addr)
}

// resolveServeDir returns a directory to serve for path, unpacking archives.
func resolveServeDir(cmd *cobra.Command, path string) (string, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if info.IsDir() {
		return path, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "sitegrab-serve-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmp) }

	if err := archive.NewManager().ExtractAll(cmd.Context(), path, tmp); err != nil {
		cleanup()
		return "", nil, err
	}
	logger.Debug("archive unpacked", logger.Fields{"archive": path, "dir": tmp})
	return tmp, cleanup, nil
}
