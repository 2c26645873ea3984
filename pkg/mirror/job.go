// Package mirror downloads a single page together with its same-origin
// subresources and rewrites the page to point at the local copies.
package mirror

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/locate"
	"github.com/glorpus-work/sitegrab/pkg/pathmap"
)

// Job describes one mirror run. Build it with NewJob; it must not be changed
// once passed to Engine.Run.
type Job struct {
	// ID identifies the run in logs and history.
	ID                string
	RootURL           *url.URL
	Origin            pathmap.Origin
	Destination       string
	Kinds             locate.Kinds
	PreserveStructure bool
}

// NewJob validates the inputs of a run without touching the network. Only
// absolute http and https URLs are accepted; destination is made absolute.
func NewJob(rawURL, destination string, kinds locate.Kinds, preserveStructure bool) (*Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", pkgerrors.ErrInvalidJob, pkgerrors.ErrInvalidURL, rawURL)
	}
	if !pathmap.IsHTTP(u) || u.Host == "" {
		return nil, fmt.Errorf("%w: %w: %q must be an absolute http or https URL", pkgerrors.ErrInvalidJob, pkgerrors.ErrInvalidURL, rawURL)
	}
	u.Fragment = ""
	u.RawFragment = ""

	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("%w: destination directory is required", pkgerrors.ErrInvalidJob)
	}
	dest, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidJob, err)
	}

	return &Job{
		ID:                uuid.NewString(),
		RootURL:           u,
		Origin:            pathmap.OriginOf(u),
		Destination:       dest,
		Kinds:             kinds,
		PreserveStructure: preserveStructure,
	}, nil
}

func (j *Job) validate() error {
	if j == nil || j.RootURL == nil {
		return fmt.Errorf("%w: job has no root URL", pkgerrors.ErrInvalidJob)
	}
	if !pathmap.IsHTTP(j.RootURL) {
		return fmt.Errorf("%w: %w: unsupported scheme %q", pkgerrors.ErrInvalidJob, pkgerrors.ErrInvalidURL, j.RootURL.Scheme)
	}
	if !filepath.IsAbs(j.Destination) {
		return fmt.Errorf("%w: destination %q must be absolute", pkgerrors.ErrInvalidJob, j.Destination)
	}
	return nil
}
