package download

import (
	"context"
	"net/url"
	"time"
)

// Manager fetches resources over HTTP into a destination tree.
type Manager interface {
	// FetchAll downloads items with a bounded worker pool. It always returns
	// one Record per item, in item order; per-item failures are data, never
	// an error. Items not yet dispatched when ctx is done are marked Skipped.
	FetchAll(ctx context.Context, items []Item, opts Options) []Record

	// Fetch downloads a single item.
	Fetch(ctx context.Context, item Item, opts Options) Record

	// FetchDocument reads a page into memory, honouring MaxFileSize.
	FetchDocument(ctx context.Context, u *url.URL, opts Options) (*Document, error)
}

// Item is one resource to download.
type Item struct {
	ID   string   // dedup key, unique within a batch
	URL  *url.URL // source URL
	Path string   // slash separated destination, relative to Options.Dir
	Kind string   // metrics label, e.g. "image"
}

// Options control the behavior of the download manager.
type Options struct {
	Dir          string        // destination root. Must be absolute.
	Concurrency  int           // number of workers; if <=0, DefaultConcurrency is used
	MaxFileSize  int64         // per resource limit in bytes; 0 disables
	MaxTotalSize int64         // limit across one FetchAll call; 0 disables
	Retries      int           // extra attempts for transport errors, 429 and 5xx
	RetryBackoff time.Duration // delay before the first retry, doubled each time

	// OnComplete is called once per item, serialized, as records are produced.
	OnComplete func(Record)
}

// DefaultConcurrency is the worker count used when Options.Concurrency is unset.
const DefaultConcurrency = 5

// Outcome classifies a Record.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Record is the immutable result of one item.
type Record struct {
	ID       string
	URL      string
	Path     string
	Kind     string
	Bytes    int64
	Outcome  Outcome
	Err      error
	Attempts int
	Duration time.Duration
}

// OK reports whether the item was written successfully.
func (r Record) OK() bool {
	return r.Outcome == Success
}

// Detail returns the failure message, or "" for successful records.
func (r Record) Detail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Document is a fetched page held in memory.
type Document struct {
	// URL is the final URL after redirects.
	URL         *url.URL
	ContentType string
	Body        []byte
	Attempts    int
}
