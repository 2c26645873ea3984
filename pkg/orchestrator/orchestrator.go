package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glorpus-work/sitegrab/internal/logger"
	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
	"github.com/glorpus-work/sitegrab/pkg/history"
	"github.com/glorpus-work/sitegrab/pkg/mirror"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Mirror runs job and then the configured follow-up steps.
//
// The archive is only created for a run that completed without cancellation.
// History and metrics are written for every run, including failed ones;
// failures there are logged and do not change the returned error.
func (o *Orchestrator) Mirror(ctx context.Context, job *mirror.Job, opts MirrorOptions) (*Report, error) {
	if o.Engine == nil {
		return nil, fmt.Errorf("mirror engine is not configured")
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job is nil", pkgerrors.ErrInvalidJob)
	}
	if opts.ArchivePath != "" && o.Archive == nil {
		return nil, fmt.Errorf("archiver is not configured")
	}

	report := &Report{RunID: job.ID}
	started := time.Now()

	if opts.Clean {
		emit(o.Hooks, Event{Phase: PhaseCleaning, ID: job.ID, Msg: job.Destination})
		if err := fsutil.CleanDir(job.Destination); err != nil {
			emit(o.Hooks, Event{Phase: PhaseError, ID: job.ID, Msg: err.Error()})
			return report, fmt.Errorf("failed to clean destination: %w", err)
		}
	}

	emit(o.Hooks, Event{Phase: PhaseMirroring, ID: job.ID, Msg: job.RootURL.String()})
	res, err := o.Engine.Run(ctx, job, o.Hooks.OnProgress)
	report.Result = res

	if err == nil && opts.ArchivePath != "" && !res.Cancelled {
		emit(o.Hooks, Event{Phase: PhaseArchiving, ID: job.ID, Msg: opts.ArchivePath})
		if aerr := o.Archive.Create(ctx, job.Destination, opts.ArchivePath); aerr != nil {
			err = fmt.Errorf("failed to archive mirror: %w", aerr)
		} else {
			report.ArchivePath = opts.ArchivePath
		}
	}

	// the follow-up writes must survive a cancelled run context
	bg := context.WithoutCancel(ctx)
	if o.History != nil {
		emit(o.Hooks, Event{Phase: PhaseRecording, ID: job.ID})
		entry := historyEntry(job, res, err, started)
		entry.Archive = report.ArchivePath
		if herr := o.History.Record(bg, entry); herr != nil {
			logger.Warn("failed to record run history", logger.Fields{"run_id": job.ID, "error": herr.Error()})
		}
	}
	if o.Metrics != nil && opts.MetricsFile != "" {
		if merr := o.Metrics.WriteTextfile(opts.MetricsFile); merr != nil {
			logger.Warn("failed to write metrics", logger.Fields{"path": opts.MetricsFile, "error": merr.Error()})
		}
	}

	if err != nil {
		emit(o.Hooks, Event{Phase: PhaseError, ID: job.ID, Msg: err.Error()})
		return report, err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, ID: job.ID, Msg: res.IndexPath})
	return report, nil
}

func historyEntry(job *mirror.Job, res *mirror.Result, err error, started time.Time) history.Run {
	entry := history.Run{
		ID:          job.ID,
		URL:         job.RootURL.String(),
		Destination: job.Destination,
		StartedAt:   started,
		Elapsed:     time.Since(started),
		Status:      history.StatusSuccess,
	}
	if res != nil {
		entry.Succeeded = res.Stats.Succeeded
		entry.Failed = res.Stats.Failed
		entry.Skipped = res.Stats.Skipped
		entry.TotalBytes = res.Stats.TotalBytes
		if res.Stats.Elapsed > 0 {
			entry.Elapsed = res.Stats.Elapsed
		}
		if res.Cancelled {
			entry.Status = history.StatusCancelled
		}
	}
	if err != nil {
		entry.Status = history.StatusFailed
		entry.Stage = string(pkgerrors.StageOf(err))
		entry.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			entry.Status = history.StatusCancelled
		}
	}
	return entry
}
