package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/sitegrab/pkg/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past mirror runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultHistoryLimit, "maximum number of runs to list (0 for all)")
	cmd.AddCommand(newHistoryShowCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the details of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Settings.HistoryDB)
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	return writeRunTable(out, runs)
}

func writeRunTable(w io.Writer, runs []history.Run) error {
	tabWriter := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ID\tSTARTED\tSTATUS\tFILES\tSIZE\tURL")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			shortID(r.ID), humanize.Time(r.StartedAt), r.Status,
			r.Succeeded, r.Succeeded+r.Failed+r.Skipped,
			formatBytes(r.TotalBytes), r.URL)
	}
	return tabWriter.Flush()
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.Lookup(cmd.Context(), id)
	if err != nil {
		return err
	}
	writeRunDetails(cmd.OutOrStdout(), run)
	return nil
}

func writeRunDetails(w io.Writer, r *history.Run) {
	_, _ = fmt.Fprintf(w, "Run:         %s\n", r.ID)
	_, _ = fmt.Fprintf(w, "URL:         %s\n", r.URL)
	_, _ = fmt.Fprintf(w, "Destination: %s\n", r.Destination)
	if r.Archive != "" {
		_, _ = fmt.Fprintf(w, "Archive:     %s\n", r.Archive)
	}
	_, _ = fmt.Fprintf(w, "Started:     %s\n", r.StartedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Elapsed:     %s\n", r.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Status:      %s\n", r.Status)
	if r.Stage != "" {
		_, _ = fmt.Fprintf(w, "Stage:       %s\n", r.Stage)
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:       %s\n", r.Error)
	}
	_, _ = fmt.Fprintf(w, "Downloaded:  %d (%s)\n", r.Succeeded, formatBytes(r.TotalBytes))
	_, _ = fmt.Fprintf(w, "Failed:      %d\n", r.Failed)
	_, _ = fmt.Fprintf(w, "Skipped:     %d\n", r.Skipped)
}

// shortID abbreviates a run ID for table output.
func shortID(id string) string {
	const n = 8
	if len(id) > n {
		return id[:n]
	}
	return id
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}
