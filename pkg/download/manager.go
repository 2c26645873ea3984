package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
	"github.com/glorpus-work/sitegrab/pkg/metrics"
)

// DefaultUserAgent identifies requests like a desktop browser; many servers
// reject clients without one.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const (
	acceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptResource = "*/*"
	acceptLanguage = "en-US,en;q=0.9"
)

// ManagerImpl is an HTTP download manager. One instance owns one http.Client
// and is meant to serve a single job.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
	recorder  metrics.Recorder
}

// NewManager creates a new download manager with the given timeout and user agent.
// A nil recorder discards metrics.
func NewManager(timeout time.Duration, userAgent string, recorder metrics.Recorder) *ManagerImpl {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		recorder:  recorder,
	}
}

// FetchAll downloads items concurrently and returns one record per item.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) []Record {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	records := make([]Record, len(items))
	if len(items) == 0 {
		return records
	}

	if err := prepareDir(opts.Dir); err != nil {
		var mu sync.Mutex
		for i, it := range items {
			records[i] = failed(it, err, 0, 0)
			m.recorder.FetchFinished(it.Kind, metrics.OutcomeFailure, 0, 0)
			report(&mu, opts.OnComplete, records[i])
		}
		return records
	}

	m.runDownloadWorkers(ctx, items, records, opts)
	return records
}

// Fetch downloads a single item.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) Record {
	if err := prepareDir(opts.Dir); err != nil {
		return failed(item, err, 0, 0)
	}
	return m.fetchOne(ctx, item, opts, newBudget(opts.MaxTotalSize))
}

func prepareDir(dir string) error {
	if dir == "" || !filepath.IsAbs(dir) {
		return fmt.Errorf("download dir must be absolute: %w: %s", pkgerrors.ErrInvalidPath, dir)
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return pkgerrors.Wrap(err, "could not create download dir")
	}
	return nil
}

func report(mu *sync.Mutex, fn func(Record), rec Record) {
	if fn == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fn(rec)
}

// runDownloadWorkers feeds item indexes to a fixed set of workers through a
// channel whose capacity equals the worker count. The dispatcher stops as soon
// as ctx is done; everything it did not hand out is recorded as skipped.
func (m *ManagerImpl) runDownloadWorkers(ctx context.Context, items []Item, records []Record, opts Options) {
	var mu sync.Mutex
	total := newBudget(opts.MaxTotalSize)

	tasks := make(chan int, opts.Concurrency)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				var rec Record
				if ctx.Err() != nil {
					rec = skipped(items[idx])
					m.recorder.FetchFinished(items[idx].Kind, metrics.OutcomeSkipped, 0, 0)
				} else {
					rec = m.fetchOne(ctx, items[idx], opts, total)
				}
				records[idx] = rec
				report(&mu, opts.OnComplete, rec)
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(items); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case tasks <- next:
		}
	}
	close(tasks)

	for i := next; i < len(items); i++ {
		records[i] = skipped(items[i])
		m.recorder.FetchFinished(items[i].Kind, metrics.OutcomeSkipped, 0, 0)
		report(&mu, opts.OnComplete, records[i])
	}
	wg.Wait()
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options, total *budget) Record {
	start := time.Now()
	m.recorder.FetchStarted(item.Kind)

	n, attempts, err := m.fetchToFile(ctx, item, opts, total)
	elapsed := time.Since(start)
	if err != nil {
		m.recorder.FetchFinished(item.Kind, metrics.OutcomeFailure, 0, elapsed)
		return failed(item, err, attempts, elapsed)
	}

	m.recorder.FetchFinished(item.Kind, metrics.OutcomeSuccess, n, elapsed)
	return Record{
		ID:       item.ID,
		URL:      urlString(item.URL),
		Path:     item.Path,
		Kind:     item.Kind,
		Bytes:    n,
		Outcome:  Success,
		Attempts: attempts,
		Duration: elapsed,
	}
}

func (m *ManagerImpl) fetchToFile(ctx context.Context, item Item, opts Options, total *budget) (int64, int, error) {
	if item.URL == nil {
		return 0, 0, fmt.Errorf("nil URL: %w", pkgerrors.ErrFetchFailed)
	}
	absPath, err := fsutil.SafeJoin(opts.Dir, item.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidPath, err)
	}

	var written int64
	attempts, err := m.withRetries(ctx, opts, func() error {
		resp, err := m.doRequest(ctx, item.URL, acceptResource)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if err := checkDeclaredSize(resp, opts.MaxFileSize); err != nil {
			return err
		}
		tmpPath, n, err := writeBodyToTemp(resp, absPath, opts.MaxFileSize, total)
		if err != nil {
			return err
		}
		if err := finalizeFile(tmpPath, absPath); err != nil {
			_ = os.Remove(tmpPath)
			total.release(n)
			return err
		}
		written = n
		return nil
	})
	return written, attempts, err
}

// FetchDocument downloads the page at u into memory.
func (m *ManagerImpl) FetchDocument(ctx context.Context, u *url.URL, opts Options) (*Document, error) {
	if u == nil {
		return nil, fmt.Errorf("nil URL: %w", pkgerrors.ErrFetchFailed)
	}

	var doc *Document
	attempts, err := m.withRetries(ctx, opts, func() error {
		resp, err := m.doRequest(ctx, u, acceptDocument)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if err := checkDeclaredSize(resp, opts.MaxFileSize); err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := copyLimited(&buf, resp.Body, opts.MaxFileSize, nil); err != nil {
			return err
		}
		doc = &Document{
			URL:         resp.Request.URL,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        buf.Bytes(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc.Attempts = attempts
	return doc, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, u *url.URL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: u.String()}
	}
	return resp, nil
}

func checkDeclaredSize(resp *http.Response, limit int64) error {
	if limit > 0 && resp.ContentLength > limit {
		return fmt.Errorf("%d bytes declared, limit %d: %w", resp.ContentLength, limit, pkgerrors.ErrFileTooLarge)
	}
	return nil
}

func writeBodyToTemp(resp *http.Response, absPath string, limit int64, total *budget) (string, int64, error) {
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return "", 0, fmt.Errorf("could not create directory: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("could not create temp file: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()

	n, err := copyLimited(tmp, resp.Body, limit, total)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		total.release(n)
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		total.release(n)
		return "", 0, fmt.Errorf("could not sync file: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		total.release(n)
		return "", 0, fmt.Errorf("could not close file: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	return tmpPath, n, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return fmt.Errorf("could not finalize file: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("could not set permissions: %w: %w", pkgerrors.ErrWriteFailed, err)
	}
	return nil
}

func failed(item Item, err error, attempts int, elapsed time.Duration) Record {
	return Record{
		ID:       item.ID,
		URL:      urlString(item.URL),
		Path:     item.Path,
		Kind:     item.Kind,
		Outcome:  Failure,
		Err:      err,
		Attempts: attempts,
		Duration: elapsed,
	}
}

func skipped(item Item) Record {
	return Record{
		ID:      item.ID,
		URL:     urlString(item.URL),
		Path:    item.Path,
		Kind:    item.Kind,
		Outcome: Skipped,
		Err:     context.Canceled,
	}
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
