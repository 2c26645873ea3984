package mirror

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/download"
	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/locate"
	"github.com/glorpus-work/sitegrab/pkg/metrics"
	"github.com/glorpus-work/sitegrab/pkg/pathmap"
)

// ProgressFunc receives (completed, total) after every finished fetch.
// Calls are serialized.
type ProgressFunc func(completed, total int)

// Options configure an Engine. The zero value is usable; see DefaultOptions.
type Options struct {
	Concurrency       int
	Timeout           time.Duration
	UserAgent         string
	MaxFileSize       int64
	MaxTotalSize      int64
	BlockedExtensions []string
	Retries           int
	RetryBackoff      time.Duration
	Pretty            bool

	// OnState observes every state transition of a run.
	OnState func(State)
	// Metrics receives fetch events; nil discards them.
	Metrics metrics.Recorder
}

// Defaults shared with the configuration layer.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxFileSize  = 50_000_000
	DefaultMaxTotalSize = 500_000_000
	DefaultRetryBackoff = 500 * time.Millisecond
)

// DefaultOptions returns the options of a plain run.
func DefaultOptions() Options {
	return Options{
		Concurrency:       download.DefaultConcurrency,
		Timeout:           DefaultTimeout,
		UserAgent:         download.DefaultUserAgent,
		MaxFileSize:       DefaultMaxFileSize,
		MaxTotalSize:      DefaultMaxTotalSize,
		BlockedExtensions: append([]string(nil), pathmap.DefaultBlockedExtensions...),
		RetryBackoff:      DefaultRetryBackoff,
		Pretty:            true,
	}
}

// Engine runs mirror jobs. It holds no per-job state and may run several
// jobs concurrently.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = download.DefaultConcurrency
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return &Engine{opts: opts}
}

// run carries the state of one job.
type run struct {
	opts   Options
	job    *Job
	id     string
	state  State
	start  time.Time
	origin pathmap.Origin
}

func (r *run) transition(s State) {
	r.state = s
	logger.Debug("state changed", logger.Fields{"run_id": r.id, "state": s.String()})
	if r.opts.OnState != nil {
		r.opts.OnState(s)
	}
}

func (r *run) fail(stage pkgerrors.Stage, err error, format string, args ...any) error {
	if r.state != Idle {
		r.transition(Failed)
	}
	f := pkgerrors.NewFailure(stage, err, format, args...)
	logger.Error("mirror failed", logger.Fields{
		"run_id": r.id,
		"stage":  string(stage),
		"error":  f.Error(),
	})
	return f
}

// Run mirrors job.RootURL into job.Destination. Individual resource failures
// are reported in the Result; only failures that prevent writing index.html
// are returned as a *errors.Failure. A cancelled ctx stops scheduling new
// fetches but still writes the rewritten document.
func (e *Engine) Run(ctx context.Context, job *Job, sink ProgressFunc) (*Result, error) {
	r := &run{opts: e.opts, job: job, start: time.Now()}
	if job != nil {
		r.id = job.ID
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}

	if err := job.validate(); err != nil {
		return nil, r.fail(pkgerrors.StageValidate, err, "invalid job")
	}

	var mgr download.Manager = download.NewManager(e.opts.Timeout, e.opts.UserAgent, e.opts.Metrics)
	dlOpts := download.Options{
		Dir:          job.Destination,
		Concurrency:  e.opts.Concurrency,
		MaxFileSize:  e.opts.MaxFileSize,
		MaxTotalSize: e.opts.MaxTotalSize,
		Retries:      e.opts.Retries,
		RetryBackoff: e.opts.RetryBackoff,
	}

	logger.Info("mirror started", logger.Fields{
		"run_id":      r.id,
		"url":         job.RootURL.String(),
		"destination": job.Destination,
	})

	r.transition(FetchingRoot)
	root, err := mgr.FetchDocument(ctx, job.RootURL, dlOpts)
	if err != nil {
		return nil, r.fail(pkgerrors.StageFetchRoot, fmt.Errorf("%w: %w", pkgerrors.ErrRootFetchFailed, err),
			"could not fetch %s", job.RootURL)
	}

	// Scope follows the root across redirects so that it agrees with the
	// resolution base.
	r.origin = pathmap.OriginOf(root.URL)
	if r.origin != job.Origin {
		logger.Info("root redirected to another origin", logger.Fields{
			"run_id": r.id,
			"from":   job.Origin.String(),
			"to":     r.origin.String(),
		})
	}

	r.transition(DiscoveringReferences)
	doc, err := parseDocument(root.Body, root.ContentType)
	if err != nil {
		return nil, r.fail(pkgerrors.StageParse, err, "could not parse %s", root.URL)
	}
	base := resolutionBase(doc, root.URL)
	items, refStats := r.discover(doc, base)

	r.transition(Downloading)
	completed := 0
	dlOpts.OnComplete = func(rec download.Record) {
		if rec.Outcome == download.Skipped {
			return
		}
		completed++
		if rec.Outcome == download.Failure {
			logger.Warn("fetch failed", logger.Fields{
				"run_id":   r.id,
				"url":      rec.URL,
				"path":     rec.Path,
				"attempts": rec.Attempts,
				"error":    rec.Detail(),
			})
		}
		if sink != nil {
			sink(completed, len(items))
		}
	}
	records := mgr.FetchAll(ctx, items, dlOpts)

	r.transition(Rewriting)
	indexPath, err := writeDocument(doc, job.Destination, e.opts.Pretty)
	if err != nil {
		return nil, r.fail(pkgerrors.StageWrite, err, "could not write %s", pathmap.RootDocument)
	}

	stats := newStats(records)
	stats.Rejected = refStats.rejected
	stats.Deduplicated = refStats.deduplicated
	stats.Elapsed = time.Since(r.start)
	r.transition(Done)

	res := &Result{
		Stats:     stats,
		Cancelled: ctx.Err() != nil,
		BaseURL:   base.String(),
		Origin:    r.origin.String(),
		IndexPath: indexPath,
	}
	logger.Info("mirror finished", logger.Fields{
		"run_id":    r.id,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
		"bytes":     stats.TotalBytes,
		"elapsed":   stats.Elapsed.String(),
		"cancelled": res.Cancelled,
	})
	return res, nil
}

type referenceStats struct {
	rejected     int
	deduplicated int
}

// discover rewrites every in-scope reference to its local path and returns
// one download item per unique resource. References to the page itself are
// rewritten but never fetched.
func (r *run) discover(doc *goquery.Document, base *url.URL) ([]download.Item, referenceStats) {
	mapper := pathmap.New(pathmap.Options{
		PreserveStructure: r.job.PreserveStructure,
		BlockedExtensions: r.opts.BlockedExtensions,
	})
	seen := newDispatchSet()

	var items []download.Item
	var st referenceStats
	for ref := range locate.Locate(doc, r.job.Kinds) {
		target, ok := mapper.Resolve(ref.Raw, base, r.origin)
		if !ok {
			st.rejected++
			r.opts.Metrics.ScopeRejected()
			logger.Debug("reference out of scope", logger.Fields{"run_id": r.id, "tag": ref.Tag, "attr": ref.Attr, "raw": ref.Raw})
			continue
		}

		ref.Set(localRef(target.Path))
		if target.IsRoot() {
			continue
		}
		if !seen.claim(target) {
			st.deduplicated++
			r.opts.Metrics.Deduplicated()
			continue
		}

		u, err := url.Parse(target.URL)
		if err != nil {
			continue
		}
		items = append(items, download.Item{
			ID:   target.Key,
			URL:  u,
			Path: target.Path,
			Kind: ref.Kind.String(),
		})
	}

	logger.Debug("references discovered", logger.Fields{
		"run_id":       r.id,
		"unique":       seen.len(),
		"rejected":     st.rejected,
		"deduplicated": st.deduplicated,
	})
	return items, st
}
