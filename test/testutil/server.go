// Package testutil provides an in-process web site for exercising fetch and mirror code.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Page is one canned response.
type Page struct {
	Status      int
	ContentType string
	Body        string
	// Delay holds the response back, returning early if the client goes away.
	Delay time.Duration
	// Wait blocks the response until it is closed or the client goes away.
	Wait <-chan struct{}
	// Header is merged into the response headers.
	Header http.Header
}

// Site serves a fixed set of pages and counts hits per path.
type Site struct {
	*httptest.Server

	mu     sync.Mutex
	pages  map[string]Page
	hits   map[string]int
	agents map[string]string
}

// NewSite starts a site and registers its shutdown with t.Cleanup.
func NewSite(t *testing.T, pages map[string]Page) *Site {
	t.Helper()
	s := &Site{
		pages:  make(map[string]Page, len(pages)),
		hits:   make(map[string]int),
		agents: make(map[string]string),
	}
	for p, page := range pages {
		s.pages[p] = page
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// HTML is a 200 text/html page.
func HTML(body string) Page {
	return Page{Status: http.StatusOK, ContentType: "text/html; charset=utf-8", Body: body}
}

// File is a 200 page with the given content type.
func File(contentType, body string) Page {
	return Page{Status: http.StatusOK, ContentType: contentType, Body: body}
}

// Status is an empty page with the given status code.
func Status(code int) Page {
	return Page{Status: code}
}

// Set adds or replaces a page while the site is running.
func (s *Site) Set(path string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = page
}

// Hits returns how often path was requested.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Site) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// UserAgent returns the User-Agent of the last request for path.
func (s *Site) UserAgent(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents[path]
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}

	s.mu.Lock()
	s.hits[key]++
	s.agents[key] = r.Header.Get("User-Agent")
	page, ok := s.pages[key]
	if !ok {
		page, ok = s.pages[r.URL.Path]
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if page.Delay > 0 {
		select {
		case <-time.After(page.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if page.Wait != nil {
		select {
		case <-page.Wait:
		case <-r.Context().Done():
			return
		}
	}

	for k, vs := range page.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if page.ContentType != "" {
		w.Header().Set("Content-Type", page.ContentType)
	}
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(page.Body))
}
