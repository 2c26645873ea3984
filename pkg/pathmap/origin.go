package pathmap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/glorpus-work/sitegrab/pkg/errors"
)

// Origin is the scheme and host pair that bounds a job's scope.
type Origin struct {
	Scheme string
	// Host is lower-case and carries the port only when it is not the
	// scheme default.
	Host string
}

// OriginOf returns the origin of an absolute URL.
func OriginOf(u *url.URL) Origin {
	scheme := strings.ToLower(u.Scheme)
	return Origin{Scheme: scheme, Host: normalizeHost(scheme, u.Host)}
}

// ParseOrigin parses raw and returns its origin. Only http and https are accepted.
func ParseOrigin(raw string) (Origin, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Origin{}, errors.Wrapf(errors.ErrInvalidURL, "parse %q", raw)
	}
	if !IsHTTP(u) || u.Host == "" {
		return Origin{}, fmt.Errorf("%w: %q must be an absolute http or https URL", errors.ErrInvalidURL, raw)
	}
	return OriginOf(u), nil
}

// Contains reports whether u is an http(s) URL on the origin's host.
// The scheme may differ from the origin's; host comparison is case-insensitive
// and the port is significant.
func (o Origin) Contains(u *url.URL) bool {
	if u == nil || !IsHTTP(u) || u.Host == "" {
		return false
	}
	return normalizeHost(strings.ToLower(u.Scheme), u.Host) == o.Host
}

func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
