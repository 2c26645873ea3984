package mirror

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/glorpus-work/sitegrab/pkg/download"
)

// Stats aggregates the records of one run.
type Stats struct {
	Succeeded    int
	Failed       int
	Skipped      int
	Rejected     int // references left untouched because they were out of scope
	Deduplicated int // references that reused an already scheduled resource
	TotalBytes   int64
	Elapsed      time.Duration
	Records      []download.Record
}

func newStats(records []download.Record) Stats {
	s := Stats{Records: records}
	for _, r := range records {
		switch r.Outcome {
		case download.Success:
			s.Succeeded++
			s.TotalBytes += r.Bytes
		case download.Failure:
			s.Failed++
		case download.Skipped:
			s.Skipped++
		}
	}
	return s
}

// Megabytes returns TotalBytes in MB (10^6 bytes).
func (s Stats) Megabytes() float64 {
	return float64(s.TotalBytes) / 1e6
}

// HumanBytes renders TotalBytes for display, e.g. "1.2 MB".
func (s Stats) HumanBytes() string {
	return humanize.Bytes(uint64(s.TotalBytes))
}

// AverageSpeed returns downloaded bytes per second over the whole run.
func (s Stats) AverageSpeed() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalBytes) / s.Elapsed.Seconds()
}

// HumanSpeed renders AverageSpeed, e.g. "350 kB/s".
func (s Stats) HumanSpeed() string {
	return humanize.Bytes(uint64(s.AverageSpeed())) + "/s"
}

// Failures returns the failed records.
func (s Stats) Failures() []download.Record {
	var out []download.Record
	for _, r := range s.Records {
		if r.Outcome == download.Failure {
			out = append(out, r)
		}
	}
	return out
}

// Result is returned by a run that produced an index.html.
type Result struct {
	Stats     Stats
	Cancelled bool
	// BaseURL is the URL references were resolved against: the final root
	// URL after redirects, or the document's <base href>.
	BaseURL string
	// Origin is the scope of the run, taken from the final root URL.
	Origin string
	// IndexPath is the absolute path of the written document.
	IndexPath string
}

// Success is true for every returned Result; fatal outcomes are errors.
func (r *Result) Success() bool {
	return r != nil
}
