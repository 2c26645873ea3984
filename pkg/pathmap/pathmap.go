// Package pathmap maps remote resource URLs onto safe relative paths inside a
// mirror directory and decides which references are in scope for a job.
package pathmap

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// RootDocument is the local path of the mirrored page itself.
const RootDocument = "index.html"

// DefaultBlockedExtensions are server-side source extensions that are never fetched.
var DefaultBlockedExtensions = []string{".php", ".asp", ".aspx", ".jsp", ".exe"}

// ignoredPrefixes are pseudo-URL schemes that never name a fetchable resource.
var ignoredPrefixes = []string{"data:", "javascript:", "mailto:", "tel:", "about:", "blob:"}

// Options tunes how URLs are laid out on disk.
type Options struct {
	// PreserveStructure keeps the remote directory layout. When false every
	// resource is written directly under the destination root.
	PreserveStructure bool
	// BlockedExtensions lists lower-case extensions (with the dot) that are
	// treated as out of scope.
	BlockedExtensions []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		PreserveStructure: true,
		BlockedExtensions: append([]string(nil), DefaultBlockedExtensions...),
	}
}

// Target is a reference resolved to a fetchable URL and its local path.
type Target struct {
	// URL is the absolute URL to fetch, fragment stripped.
	URL string
	// Key identifies the resource for deduplication.
	Key string
	// Path is slash separated, relative, and never contains "..".
	Path string
}

// Same reports whether t and o name the same local resource.
func (t Target) Same(o Target) bool {
	return t.Key == o.Key && t.Path == o.Path
}

// IsRoot reports whether the target maps onto the mirrored page itself.
func (t Target) IsRoot() bool {
	return t.Path == RootDocument
}

// Mapper resolves raw reference text to Targets. It is safe for concurrent use.
type Mapper struct {
	opts    Options
	blocked map[string]struct{}
}

// New creates a Mapper.
func New(opts Options) *Mapper {
	blocked := make(map[string]struct{}, len(opts.BlockedExtensions))
	for _, ext := range opts.BlockedExtensions {
		blocked[strings.ToLower(ext)] = struct{}{}
	}
	return &Mapper{opts: opts, blocked: blocked}
}

// Resolve joins raw against base and maps the result to a Target. The second
// return value is false when the reference is out of scope: it points at
// another host, uses a non-http scheme, is malformed, or would escape the
// destination directory.
func (m *Mapper) Resolve(raw string, base *url.URL, origin Origin) (Target, bool) {
	raw = strings.TrimSpace(raw)
	if base == nil || ignored(raw) {
		return Target{}, false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return Target{}, false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""

	if !origin.Contains(abs) {
		return Target{}, false
	}

	segments, ok := canonicalSegments(abs.Path)
	if !ok {
		return Target{}, false
	}
	if m.isBlocked(segments) {
		return Target{}, false
	}

	canonical := strings.Join(segments, "/")
	local := sanitizePath(segments)
	if abs.RawQuery != "" {
		local = withQueryTag(local, abs.RawQuery)
	}
	if !m.opts.PreserveStructure {
		local = strings.ReplaceAll(local, "/", "_")
	}

	key := strings.ToLower(abs.Scheme) + "://" + origin.Host + "/" + canonical
	if abs.RawQuery != "" {
		key += "?" + abs.RawQuery
	}

	return Target{URL: abs.String(), Key: key, Path: local}, true
}

func (m *Mapper) isBlocked(segments []string) bool {
	if len(m.blocked) == 0 {
		return false
	}
	// the last segment is always a file name at this point; index.html is
	// only appended for directories so check the segment before it too
	names := segments[len(segments)-1:]
	if len(segments) > 1 && segments[len(segments)-1] == "index.html" {
		names = segments[len(segments)-2:]
	}
	for _, n := range names {
		if _, ok := m.blocked[strings.ToLower(path.Ext(n))]; ok {
			return true
		}
	}
	return false
}

func ignored(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return true
	}
	lower := strings.ToLower(raw)
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// canonicalSegments splits a decoded URL path into cleaned segments that
// always end with a file name. It returns false for parent-directory segments.
func canonicalSegments(p string) ([]string, bool) {
	dir := p == "" || strings.HasSuffix(p, "/")

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, false
		}
		out = append(out, seg)
	}

	if dir || len(out) == 0 || path.Ext(out[len(out)-1]) == "" {
		out = append(out, RootDocument)
	}
	return out, true
}

func sanitizePath(segments []string) string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = sanitize(seg)
	}
	return strings.Join(out, "/")
}

// sanitize replaces characters that are unsafe in file names on common filesystems.
func sanitize(seg string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		switch r {
		case '<', '>', ':', '"', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, seg)
}

// withQueryTag folds a short digest of the query into the file name so that
// resources differing only by query get distinct files.
func withQueryTag(p, query string) string {
	sum := sha256.Sum256([]byte(query))
	tag := "_q" + hex.EncodeToString(sum[:4])

	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + tag + ext
}
