//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . Mirrorer,Archiver,HistoryRecorder,MetricsWriter

package orchestrator

import (
	"context"

	"github.com/glorpus-work/sitegrab/pkg/history"
	"github.com/glorpus-work/sitegrab/pkg/mirror"
)

// Mirrorer runs one mirror job.
type Mirrorer interface {
	Run(ctx context.Context, job *mirror.Job, sink mirror.ProgressFunc) (*mirror.Result, error)
}

// Archiver packs a finished mirror directory into a single file.
type Archiver interface {
	Create(ctx context.Context, sourceDir, archivePath string) error
}

// HistoryRecorder stores the outcome of a run.
type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

// MetricsWriter exports collected metrics in the Prometheus text format.
type MetricsWriter interface {
	WriteTextfile(path string) error
}

// Orchestrator ties the mirror engine to the optional archive, history and
// metrics steps around it.
type Orchestrator struct {
	Engine  Mirrorer
	Archive Archiver        // optional
	History HistoryRecorder // optional
	Metrics MetricsWriter   // optional
	Hooks   Hooks           // Hooks for progress and event notifications
}

// Phases reported through Hooks.OnEvent.
const (
	PhaseCleaning  = "cleaning"
	PhaseMirroring = "mirroring"
	PhaseArchiving = "archiving"
	PhaseRecording = "recording"
	PhaseDone      = "done"
	PhaseError     = "error"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string
	ID    string // run ID
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent    func(Event)
	OnProgress mirror.ProgressFunc
}

// MirrorOptions control one orchestrated run.
type MirrorOptions struct {
	Clean       bool   // empty the destination before mirroring
	ArchivePath string // pack the mirror into this file when set
	MetricsFile string // write metrics here when set
}

// Report is what Mirror returns. Result is nil when the run failed fatally.
type Report struct {
	RunID       string
	Result      *mirror.Result
	ArchivePath string
}
