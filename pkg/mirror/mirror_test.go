package mirror

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/sitegrab/pkg/download"
	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/locate"
	"github.com/glorpus-work/sitegrab/pkg/pathmap"
	"github.com/glorpus-work/sitegrab/test/testutil"
)

func plainOptions() Options {
	opts := DefaultOptions()
	opts.Pretty = false
	opts.Timeout = 5 * time.Second
	return opts
}

func newJob(t *testing.T, rawURL, dest string) *Job {
	t.Helper()
	job, err := NewJob(rawURL, dest, locate.AllKinds(), true)
	require.NoError(t, err)
	return job
}

func mustRun(t *testing.T, opts Options, job *Job) *Result {
	t.Helper()
	res, err := New(opts).Run(context.Background(), job, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func readIndex(t *testing.T, dir string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func attrs(doc *goquery.Document, selector, attr string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(attr)
		out = append(out, v)
	})
	return out
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestRun_Scenario(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><body>
<img src="/a.png">
<img src="a.png">
<script src="https://other.test/x.js"></script>
</body></html>`),
		"/a.png": testutil.File("image/png", "PNGDATA"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, site.Hits("/a.png"))
	assert.Equal(t, 2, site.TotalHits())
	assert.Equal(t, []string{"a.png", "index.html"}, listFiles(t, dir))

	doc := readIndex(t, dir)
	assert.Equal(t, []string{"a.png", "a.png"}, attrs(doc, "img", "src"))
	assert.Equal(t, []string{"https://other.test/x.js"}, attrs(doc, "script", "src"))

	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, 0, res.Stats.Failed)
	assert.Equal(t, 1, res.Stats.Deduplicated)
	assert.Equal(t, 1, res.Stats.Rejected)
	assert.Equal(t, int64(len("PNGDATA")), res.Stats.TotalBytes)
	assert.False(t, res.Cancelled)
	assert.True(t, res.Success())
	assert.Equal(t, filepath.Join(dir, "index.html"), res.IndexPath)
}

func TestRun_DuplicatesFetchedOnce(t *testing.T) {
	var body strings.Builder
	body.WriteString("<html><body>")
	for range 10 {
		body.WriteString(`<img src="/img/logo.png"><img src="img/logo.png#top">`)
	}
	body.WriteString("</body></html>")

	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":             testutil.HTML(body.String()),
		"/img/logo.png": testutil.File("image/png", "logo"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, site.Hits("/img/logo.png"))
	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, 19, res.Stats.Deduplicated)
	for _, src := range attrs(readIndex(t, dir), "img", "src") {
		assert.Equal(t, "img/logo.png", src)
	}
}

func TestRun_OutOfScopeUntouched(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head>
<link rel="stylesheet" href="https://cdn.other.test/site.css">
</head><body>
<img src="data:image/png;base64,AAAA">
<img src="javascript:void(0)">
<img src="/%2e%2e/secret.png">
<img src="/download.php">
</body></html>`),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, site.TotalHits())
	assert.Equal(t, []string{"index.html"}, listFiles(t, dir))
	assert.Equal(t, 5, res.Stats.Rejected)
	assert.Empty(t, res.Stats.Records)

	doc := readIndex(t, dir)
	assert.Equal(t, []string{"https://cdn.other.test/site.css"}, attrs(doc, "link", "href"))
	assert.Equal(t, []string{
		"data:image/png;base64,AAAA",
		"javascript:void(0)",
		"/%2e%2e/secret.png",
		"/download.php",
	}, attrs(doc, "img", "src"))
}

func TestRun_Idempotent(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head><link rel="stylesheet" href="css/site.css"></head>
<body><img src="a.png?v=2"><script src="/js/app.js"></script></body></html>`),
		"/css/site.css": testutil.File("text/css", "body{}"),
		"/a.png":        testutil.File("image/png", "png"),
		"/js/app.js":    testutil.File("application/javascript", "void 0"),
	})
	opts := DefaultOptions()
	first, second := t.TempDir(), t.TempDir()

	mustRun(t, opts, newJob(t, site.URL+"/", first))
	mustRun(t, opts, newJob(t, site.URL+"/", second))

	files := listFiles(t, first)
	require.Equal(t, files, listFiles(t, second))
	assert.Contains(t, files, "a_q269fc203.png")
	for _, f := range files {
		a, err := os.ReadFile(filepath.Join(first, f))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, f))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a, b), "file %s differs", f)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><body>
<img src="1.png"><img src="2.png"><img src="3.png"><img src="4.png"><img src="5.png">
</body></html>`),
		"/1.png": testutil.File("image/png", "1"),
		"/2.png": testutil.File("image/png", "2"),
		"/3.png": testutil.Status(http.StatusNotFound),
		"/4.png": testutil.File("image/png", "4"),
		"/5.png": testutil.File("image/png", "5"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.True(t, res.Success())
	assert.Equal(t, 4, res.Stats.Succeeded)
	assert.Equal(t, 1, res.Stats.Failed)

	failures := res.Stats.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "3.png", failures[0].Path)
	var se *download.StatusError
	require.True(t, errors.As(failures[0].Err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	assert.Equal(t, []string{"1.png", "2.png", "3.png", "4.png", "5.png"}, attrs(readIndex(t, dir), "img", "src"))
	assert.NoFileExists(t, filepath.Join(dir, "3.png"))
}

func TestRun_DirectoryFormsCollide(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head>
<link rel="alternate" href="/blog/">
<link rel="alternate" href="/blog">
<link rel="alternate" href="/blog/index.html">
</head><body></body></html>`),
		"/blog/":           testutil.HTML("<p>blog</p>"),
		"/blog":            testutil.HTML("<p>blog</p>"),
		"/blog/index.html": testutil.HTML("<p>blog</p>"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, site.Hits("/blog/")+site.Hits("/blog")+site.Hits("/blog/index.html"))
	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, 2, res.Stats.Deduplicated)
	assert.Equal(t, []string{"blog/index.html", "blog/index.html", "blog/index.html"},
		attrs(readIndex(t, dir), "link", "href"))
	assert.FileExists(t, filepath.Join(dir, "blog", "index.html"))
}

func TestRun_FlattenedCollisionFetchedOnce(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":        testutil.HTML(`<html><body><img src="/a/b.png"><img src="/a_b.png"></body></html>`),
		"/a/b.png": testutil.File("image/png", "nested"),
		"/a_b.png": testutil.File("image/png", "flat"),
	})
	dir := t.TempDir()
	job, err := NewJob(site.URL+"/", dir, locate.AllKinds(), false)
	require.NoError(t, err)

	res := mustRun(t, plainOptions(), job)

	assert.Equal(t, 1, site.Hits("/a/b.png"))
	assert.Equal(t, 0, site.Hits("/a_b.png"))
	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, []string{"a_b.png", "a_b.png"}, attrs(readIndex(t, dir), "img", "src"))
}

func TestRun_SelfReferenceNotFetched(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head><link rel="canonical" href="/"></head><body></body></html>`),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, site.Hits("/"))
	assert.Empty(t, res.Stats.Records)
	assert.Equal(t, []string{"index.html"}, attrs(readIndex(t, dir), "link", "href"))
}

func TestRun_CancelledStillWritesDocument(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":      testutil.HTML(`<html><body><img src="a.png"><img src="b.png"></body></html>`),
		"/a.png": testutil.File("image/png", "a"),
		"/b.png": testutil.File("image/png", "b"),
	})
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := plainOptions()
	opts.OnState = func(s State) {
		if s == Downloading {
			cancel()
		}
	}

	res, err := New(opts).Run(ctx, newJob(t, site.URL+"/", dir), nil)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, res.Stats.Skipped)
	assert.Equal(t, 0, site.Hits("/a.png")+site.Hits("/b.png"))
	assert.Equal(t, []string{"a.png", "b.png"}, attrs(readIndex(t, dir), "img", "src"))
}

func TestRun_States(t *testing.T) {
	tests := []struct {
		name  string
		pages map[string]testutil.Page
		want  []State
	}{
		{
			name:  "success",
			pages: map[string]testutil.Page{"/": testutil.HTML("<p>hi</p>")},
			want:  []State{FetchingRoot, DiscoveringReferences, Downloading, Rewriting, Done},
		},
		{
			name:  "root missing",
			pages: map[string]testutil.Page{},
			want:  []State{FetchingRoot, Failed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := testutil.NewSite(t, tt.pages)
			var got []State
			opts := plainOptions()
			opts.OnState = func(s State) { got = append(got, s) }

			_, _ = New(opts).Run(context.Background(), newJob(t, site.URL+"/", t.TempDir()), nil)
			assert.Equal(t, tt.want, got)
			assert.True(t, got[len(got)-1].Terminal())
		})
	}
}

func TestRun_FatalFailures(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	tests := []struct {
		name   string
		pages  map[string]testutil.Page
		dest   string
		stage  pkgerrors.Stage
		target error
	}{
		{
			name:   "root not found",
			pages:  map[string]testutil.Page{"/": testutil.Status(http.StatusNotFound)},
			stage:  pkgerrors.StageFetchRoot,
			target: pkgerrors.ErrRootFetchFailed,
		},
		{
			name:   "root is not markup",
			pages:  map[string]testutil.Page{"/": testutil.File("application/json", `{"a":1}`)},
			stage:  pkgerrors.StageParse,
			target: pkgerrors.ErrParseFailed,
		},
		{
			name:   "destination not writable",
			pages:  map[string]testutil.Page{"/": testutil.HTML("<p>hi</p>")},
			dest:   filepath.Join(blocker, "out"),
			stage:  pkgerrors.StageWrite,
			target: pkgerrors.ErrWriteFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := testutil.NewSite(t, tt.pages)
			dest := tt.dest
			if dest == "" {
				dest = t.TempDir()
			}

			res, err := New(plainOptions()).Run(context.Background(), newJob(t, site.URL+"/", dest), nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.stage, pkgerrors.StageOf(err))
			assert.ErrorIs(t, err, tt.target)

			var failure *pkgerrors.Failure
			require.ErrorAs(t, err, &failure)
			assert.NotEmpty(t, failure.Detail)
		})
	}
}

func TestRun_RootStatusIsExposed(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{"/": testutil.Status(http.StatusServiceUnavailable)})

	_, err := New(plainOptions()).Run(context.Background(), newJob(t, site.URL+"/", t.TempDir()), nil)

	var se *download.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestRun_InvalidJob(t *testing.T) {
	_, err := New(plainOptions()).Run(context.Background(), &Job{}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidJob)
	assert.Equal(t, pkgerrors.StageValidate, pkgerrors.StageOf(err))
}

func TestRun_BaseHref(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/page/": testutil.HTML(`<html><head><base href="/assets/"></head>
<body><img src="a.png"></body></html>`),
		"/assets/a.png": testutil.File("image/png", "a"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/page/", dir))

	assert.Equal(t, site.URL+"/assets/", res.BaseURL)
	assert.Equal(t, 1, site.Hits("/assets/a.png"))

	doc := readIndex(t, dir)
	assert.Equal(t, []string{"assets/a.png"}, attrs(doc, "img", "src"))
	_, hasHref := doc.Find("base").Attr("href")
	assert.False(t, hasHref)
}

func TestRun_RedirectedRootIsBase(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/old": {Status: http.StatusFound, Header: http.Header{"Location": {"/new/"}}},
		"/new/": testutil.HTML(`<html><body><img src="a.png"></body></html>`),
		"/new/a.png": testutil.File("image/png", "a"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/old", dir))

	assert.Equal(t, site.URL+"/new/", res.BaseURL)
	assert.Equal(t, 1, site.Hits("/new/a.png"))
	assert.Equal(t, []string{"new/a.png"}, attrs(readIndex(t, dir), "img", "src"))
}

func TestRun_RootRedirectedToAnotherHost(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":      testutil.HTML(`<html><body><img src="/a.png"><img src="b.png"></body></html>`),
		"/a.png": testutil.File("image/png", "a"),
		"/b.png": testutil.File("image/png", "b"),
	})
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, site.URL+"/", http.StatusMovedPermanently)
	}))
	defer front.Close()
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, front.URL+"/", dir))

	assert.Equal(t, site.URL+"/", res.BaseURL)
	assert.Equal(t, site.URL, res.Origin)
	assert.Equal(t, 2, res.Stats.Succeeded)
	assert.Zero(t, res.Stats.Rejected)
	assert.Equal(t, 1, site.Hits("/a.png"))
	assert.FileExists(t, filepath.Join(dir, "a.png"))
	assert.FileExists(t, filepath.Join(dir, "b.png"))
	assert.Equal(t, []string{"a.png", "b.png"}, attrs(readIndex(t, dir), "img", "src"))
}

func TestRun_SanitizedPathCollisionFetchedOnce(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":        testutil.HTML(`<html><body><img src="/a%3Ab.png"><img src="/a_b.png"></body></html>`),
		"/a:b.png": testutil.File("image/png", "colon"),
		"/a_b.png": testutil.File("image/png", "underscore"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, 1, res.Stats.Deduplicated)
	assert.Equal(t, 1, site.Hits("/a:b.png"))
	assert.Zero(t, site.Hits("/a_b.png"))
	assert.Equal(t, []string{"a_b.png", "a_b.png"}, attrs(readIndex(t, dir), "img", "src"))

	data, err := os.ReadFile(filepath.Join(dir, "a_b.png"))
	require.NoError(t, err)
	assert.Equal(t, "colon", string(data))
}

func TestRun_InlineStyleAndSrcSet(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><body>
<div style="background: url('images/bg.jpg') no-repeat"></div>
<picture><source srcset="/s.png 1x, /l.png 2x"></picture>
</body></html>`),
		"/images/bg.jpg": testutil.File("image/jpeg", "bg"),
		"/s.png":         testutil.File("image/png", "s"),
		"/l.png":         testutil.File("image/png", "l"),
	})
	dir := t.TempDir()

	res := mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	assert.Equal(t, 3, res.Stats.Succeeded)
	doc := readIndex(t, dir)
	assert.Equal(t, []string{"background: url('images/bg.jpg') no-repeat"}, attrs(doc, "div", "style"))
	assert.Equal(t, []string{"s.png 1x, l.png 2x"}, attrs(doc, "source", "srcset"))
	assert.Equal(t, []string{"images/bg.jpg", "index.html", "l.png", "s.png"}, listFiles(t, dir))
}

func TestRun_KindToggles(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head><link rel="stylesheet" href="/s.css"><script src="/a.js"></script></head>
<body><img src="/a.png"></body></html>`),
		"/s.css": testutil.File("text/css", "s"),
		"/a.js":  testutil.File("application/javascript", "a"),
		"/a.png": testutil.File("image/png", "a"),
	})
	dir := t.TempDir()
	job, err := NewJob(site.URL+"/", dir, locate.Kinds{Images: true}, true)
	require.NoError(t, err)

	res := mustRun(t, plainOptions(), job)

	assert.Equal(t, 1, res.Stats.Succeeded)
	assert.Equal(t, 0, site.Hits("/s.css")+site.Hits("/a.js"))
	doc := readIndex(t, dir)
	assert.Equal(t, []string{"/s.css"}, attrs(doc, "link", "href"))
	assert.Equal(t, []string{"/a.js"}, attrs(doc, "script", "src"))
}

func TestRun_Progress(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":      testutil.HTML(`<html><body><img src="a.png"><img src="b.png"><img src="c.png"></body></html>`),
		"/a.png": testutil.File("image/png", "a"),
		"/b.png": testutil.File("image/png", "b"),
		"/c.png": testutil.Status(http.StatusNotFound),
	})

	var mu sync.Mutex
	var calls [][2]int
	sink := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, [2]int{completed, total})
	}

	_, err := New(plainOptions()).Run(context.Background(), newJob(t, site.URL+"/", t.TempDir()), sink)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestRun_PrettyOutput(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": testutil.HTML(`<html><head><title>t</title></head><body><div><p>hi</p></div></body></html>`),
	})
	dir := t.TempDir()

	mustRun(t, DefaultOptions(), newJob(t, site.URL+"/", dir))

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Greater(t, strings.Count(out, "\n"), 3)
	assert.Contains(t, out, "<p>")
}

func TestRun_TranscodesLegacyCharset(t *testing.T) {
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/": {
			Status:      http.StatusOK,
			ContentType: "text/html; charset=iso-8859-1",
			Body:        "<html><head><meta charset=\"iso-8859-1\"></head><body><p>caf\xe9</p></body></html>",
		},
	})
	dir := t.TempDir()

	mustRun(t, plainOptions(), newJob(t, site.URL+"/", dir))

	doc := readIndex(t, dir)
	assert.Equal(t, "café", doc.Find("p").Text())
	assert.Equal(t, []string{"utf-8"}, attrs(doc, "meta", "charset"))
}

func TestNewJob(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dest    string
		wantErr error
	}{
		{name: "http", url: "http://ex.test/", dest: "out"},
		{name: "https with fragment", url: "https://ex.test/page#top", dest: "out"},
		{name: "ftp rejected", url: "ftp://ex.test/", dest: "out", wantErr: pkgerrors.ErrInvalidURL},
		{name: "relative rejected", url: "/page", dest: "out", wantErr: pkgerrors.ErrInvalidURL},
		{name: "no host", url: "http:///page", dest: "out", wantErr: pkgerrors.ErrInvalidURL},
		{name: "empty destination", url: "https://ex.test/", dest: "  ", wantErr: pkgerrors.ErrInvalidJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewJob(tt.url, tt.dest, locate.AllKinds(), true)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, pkgerrors.ErrInvalidJob)
				assert.Nil(t, job)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(job.Destination))
			assert.Empty(t, job.RootURL.Fragment)
			assert.Equal(t, "ex.test", job.Origin.Host)
			assert.NotEmpty(t, job.ID)
		})
	}
}

func TestStats(t *testing.T) {
	s := newStats([]download.Record{
		{Outcome: download.Success, Bytes: 1_500_000},
		{Outcome: download.Success, Bytes: 500_000},
		{Outcome: download.Failure, Path: "x.png"},
		{Outcome: download.Skipped},
	})
	s.Elapsed = 2 * time.Second

	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, int64(2_000_000), s.TotalBytes)
	assert.InDelta(t, 2.0, s.Megabytes(), 1e-9)
	assert.InDelta(t, 1_000_000.0, s.AverageSpeed(), 1e-6)
	assert.Equal(t, "2.0 MB", s.HumanBytes())
	assert.Equal(t, "1.0 MB/s", s.HumanSpeed())
	require.Len(t, s.Failures(), 1)
	assert.Equal(t, "x.png", s.Failures()[0].Path)

	assert.Zero(t, Stats{}.AverageSpeed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "discovering-references", DiscoveringReferences.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.False(t, Downloading.Terminal())
}

func TestDispatchSet(t *testing.T) {
	s := newDispatchSet()
	a := pathmapTarget("https://ex.test/a.png", "a.png")

	assert.True(t, s.claim(a))
	assert.False(t, s.claim(a))
	assert.False(t, s.claim(pathmapTarget("http://ex.test/a.png", "a.png")))
	assert.True(t, s.claim(pathmapTarget("https://ex.test/b.png", "b.png")))
	assert.Equal(t, 2, s.len())
}

func pathmapTarget(key, p string) pathmap.Target {
	return pathmap.Target{URL: key, Key: key, Path: p}
}
