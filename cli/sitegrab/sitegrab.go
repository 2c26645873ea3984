package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/sitegrab/internal/cli"
)

var (
	configPath string
	envFile    string
	verbose    bool
	logFormat  string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitegrab",
		Short: "Mirror a single web page for offline use",
		Long: `sitegrab downloads a web page together with the same-origin images,
stylesheets and scripts it references, and rewrites the page so that it opens
offline:
- mirror: fetch a page into a directory, optionally packed as an archive
- serve: browse a finished mirror over HTTP
- history: list past runs`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path, .yaml or .toml (default: user config dir)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with SITEGRAB_* variables, ignored when missing")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	// Set up CLI package variables
	cli.ConfigPath = &configPath
	cli.EnvFile = &envFile
	cli.Verbose = &verbose
	cli.LogFormat = &logFormat

	cmd.AddCommand(
		cli.NewMirrorCmd(),
		cli.NewServeCmd(),
		cli.NewHistoryCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
