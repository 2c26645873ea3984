package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return pkgerrors.ErrFetchFailed
}

// transportError marks failures below HTTP: DNS, connect, TLS, timeouts.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() []error {
	return []error{pkgerrors.ErrFetchFailed, e.err}
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var te *transportError
	return errors.As(err, &te)
}

// withRetries runs fn up to 1+opts.Retries times with exponential backoff and
// returns the number of attempts made.
func (m *ManagerImpl) withRetries(ctx context.Context, opts Options, fn func() error) (int, error) {
	backoff := opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if attempt > opts.Retries || !retryable(err) || ctx.Err() != nil {
			return attempt, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
		backoff *= 2
	}
}

// budget tracks bytes written across a batch. A nil budget or a zero limit
// accepts everything.
type budget struct {
	limit int64
	used  atomic.Int64
}

func newBudget(limit int64) *budget {
	if limit <= 0 {
		return nil
	}
	return &budget{limit: limit}
}

func (b *budget) reserve(n int64) bool {
	if b == nil {
		return true
	}
	if b.used.Add(n) > b.limit {
		b.used.Add(-n)
		return false
	}
	return true
}

func (b *budget) release(n int64) {
	if b == nil || n == 0 {
		return
	}
	b.used.Add(-n)
}

// copyLimited copies src to dst, failing once more than limit bytes arrive
// (limit 0 disables) or the shared budget is exhausted. It returns the bytes
// written, all of which are reserved in total.
func copyLimited(dst io.Writer, src io.Reader, limit int64, total *budget) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			if limit > 0 && written+int64(nr) > limit {
				return written, fmt.Errorf("more than %d bytes: %w", limit, pkgerrors.ErrFileTooLarge)
			}
			if !total.reserve(int64(nr)) {
				return written, pkgerrors.ErrTotalSizeExceeded
			}
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				total.release(int64(nr - nw))
				return written, fmt.Errorf("could not write file: %w: %w", pkgerrors.ErrWriteFailed, werr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, &transportError{err: rerr}
		}
	}
}
