package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/archive"
	"github.com/glorpus-work/sitegrab/pkg/config"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
	"github.com/glorpus-work/sitegrab/pkg/history"
	"github.com/glorpus-work/sitegrab/pkg/metrics"
	"github.com/glorpus-work/sitegrab/pkg/mirror"
	"github.com/glorpus-work/sitegrab/pkg/orchestrator"
)

type mirrorFlags struct {
	concurrency    int
	timeout        time.Duration
	userAgent      string
	retries        int
	flat           bool
	noImages       bool
	noStylesheets  bool
	noScripts      bool
	noInlineStyles bool
	noPretty       bool
	archivePath    string
	clean          bool
	tree           bool
	quiet          bool
	noHistory      bool
	metricsFile    string
}

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	var f mirrorFlags

	cmd := &cobra.Command{
		Use:   "mirror URL DEST",
		Short: "Mirror a single web page and its resources",
		Long: `Download the page at URL together with the images, stylesheets and
scripts it references from the same origin, and rewrite the page so that it
works offline from DEST/index.html.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, args[0], args[1], f)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.concurrency, "concurrency", "c", config.DefaultConcurrency, "number of parallel downloads")
	flags.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	flags.StringVar(&f.userAgent, "user-agent", "", "User-Agent header sent with every request")
	flags.IntVar(&f.retries, "retries", 0, "retries for transient fetch errors")
	flags.BoolVar(&f.flat, "flat", false, "store every resource in DEST instead of mirroring the URL path")
	flags.BoolVar(&f.noImages, "no-images", false, "skip images")
	flags.BoolVar(&f.noStylesheets, "no-css", false, "skip stylesheets")
	flags.BoolVar(&f.noScripts, "no-js", false, "skip scripts")
	flags.BoolVar(&f.noInlineStyles, "no-inline-styles", false, "skip url() references in style attributes")
	flags.BoolVar(&f.noPretty, "no-pretty", false, "write the document without reformatting it")
	flags.StringVar(&f.archivePath, "archive", "", "pack the mirror into this .zip or .tar.gz file")
	flags.BoolVar(&f.clean, "clean", false, "empty DEST before mirroring")
	flags.BoolVar(&f.tree, "tree", false, "print the mirrored files when done")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	flags.BoolVar(&f.noHistory, "no-history", false, "do not record the run in the history database")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

// applyMirrorFlags overrides settings with the flags the user set explicitly.
func applyMirrorFlags(cmd *cobra.Command, s *config.Settings, f mirrorFlags) {
	changed := cmd.Flags().Changed
	if changed("concurrency") {
		s.Concurrency = f.concurrency
	}
	if changed("timeout") {
		s.Timeout = f.timeout
	}
	if changed("user-agent") {
		s.UserAgent = f.userAgent
	}
	if changed("retries") {
		s.Retries = f.retries
	}
	if changed("metrics-file") {
		s.MetricsFile = f.metricsFile
	}
	if f.flat {
		s.PreserveStructure = false
	}
	if f.noImages {
		s.Include.Images = false
	}
	if f.noStylesheets {
		s.Include.Stylesheets = false
	}
	if f.noScripts {
		s.Include.Scripts = false
	}
	if f.noInlineStyles {
		s.Include.InlineStyles = false
	}
	if f.noPretty {
		s.Pretty = false
	}
}

func runMirror(cmd *cobra.Command, rawURL, dest string, f mirrorFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyMirrorFlags(cmd, &cfg.Settings, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	job, err := mirror.NewJob(rawURL, dest, cfg.Settings.Kinds(), cfg.Settings.PreserveStructure)
	if err != nil {
		return err
	}

	opts := cfg.Settings.MirrorOptions()
	orch := &orchestrator.Orchestrator{Archive: archive.NewManager()}
	if cfg.Settings.MetricsFile != "" {
		m := metrics.New(metricsNamespace)
		opts.Metrics = m
		orch.Metrics = m
	}
	orch.Engine = mirror.New(opts)

	if !f.noHistory && cfg.Settings.HistoryDB != "" {
		store, err := history.Open(cfg.Settings.HistoryDB)
		if err != nil {
			logger.Warn("run history disabled", logger.Fields{"error": err.Error()})
		} else {
			defer func() { _ = store.Close() }()
			orch.History = store
		}
	}

	stderr := cmd.ErrOrStderr()
	progressShown := false
	orch.Hooks.OnEvent = func(e orchestrator.Event) {
		logger.Debug("orchestrator event", logger.Fields{"phase": e.Phase, "run_id": e.ID, "msg": e.Msg})
	}
	if !f.quiet {
		printProgress := progressPrinter(stderr)
		orch.Hooks.OnProgress = func(completed, total int) {
			progressShown = true
			printProgress(completed, total)
		}
	}

	report, err := orch.Mirror(cmd.Context(), job, orchestrator.MirrorOptions{
		Clean:       f.clean,
		ArchivePath: f.archivePath,
		MetricsFile: cfg.Settings.MetricsFile,
	})
	if progressShown {
		_, _ = fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, report)
	if f.tree {
		_, _ = fmt.Fprintln(out)
		if err := fsutil.WriteTree(out, job.Destination); err != nil {
			return err
		}
	}
	return nil
}

func progressPrinter(w io.Writer) mirror.ProgressFunc {
	return func(completed, total int) {
		pct := 100
		if total > 0 {
			pct = completed * 100 / total
		}
		_, _ = fmt.Fprintf(w, "\rDownloading resources: %d/%d (%d%%)", completed, total, pct)
	}
}

func printSummary(w io.Writer, report *orchestrator.Report) {
	res := report.Result
	s := res.Stats

	status := "Mirror complete"
	if res.Cancelled {
		status = "Mirror cancelled"
	}
	_, _ = fmt.Fprintf(w, "%s: %s\n", status, res.IndexPath)
	_, _ = fmt.Fprintf(w, "  Downloaded: %d (%s)\n", s.Succeeded, s.HumanBytes())
	_, _ = fmt.Fprintf(w, "  Failed:     %d\n", s.Failed)
	if s.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "  Skipped:    %d\n", s.Skipped)
	}
	_, _ = fmt.Fprintf(w, "  Time:       %s (%s)\n", s.Elapsed.Round(time.Millisecond), s.HumanSpeed())
	for _, r := range s.Failures() {
		_, _ = fmt.Fprintf(w, "  ! %s: %v\n", r.URL, r.Err)
	}
	if report.ArchivePath != "" {
		_, _ = fmt.Fprintf(w, "  Archive:    %s\n", report.ArchivePath)
	}
	_, _ = fmt.Fprintf(w, "  Run ID:     %s\n", report.RunID)
}
