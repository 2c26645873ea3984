package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/sitegrab/internal/logger"
	"github.com/glorpus-work/sitegrab/pkg/archive"
	"github.com/glorpus-work/sitegrab/pkg/config"
	"github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/history"
	"github.com/glorpus-work/sitegrab/test/testutil"
)

// setupCLI points the package globals at a fresh config file whose history
// database lives in the test's temp dir.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Settings.HistoryDB = filepath.Join(dir, "history.db")
	require.NoError(t, cfg.SaveConfig(path))

	envFile := ""
	verbose := false
	format := ""
	ConfigPath, EnvFile, Verbose, LogFormat = &path, &envFile, &verbose, &format

	logger.SetTestOutput(io.Discard)
	t.Cleanup(func() {
		ConfigPath, EnvFile, Verbose, LogFormat = nil, nil, nil, nil
		logger.UnsetTestOutput()
	})
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMirrorCmd_EndToEnd(t *testing.T) {
	setupCLI(t)
	site := testutil.NewSite(t, map[string]testutil.Page{
		"/":             testutil.HTML(`<html><head><link rel="stylesheet" href="css/site.css"></head><body><img src="img/a.png"><script src="/app.js"></script></body></html>`),
		"/css/site.css": testutil.File("text/css", "body{}"),
		"/img/a.png":    testutil.File("image/png", "PNG"),
		"/app.js":       testutil.File("application/javascript", "void 0"),
	})

	tmp := t.TempDir()
	dest := filepath.Join(tmp, "mirror")
	archivePath := filepath.Join(tmp, "site.zip")
	metricsPath := filepath.Join(tmp, "metrics.prom")

	out, err := execute(t, NewMirrorCmd(), site.URL+"/", dest,
		"--archive", archivePath, "--tree", "--metrics-file", metricsPath, "--no-js", "-q")
	require.NoError(t, err)

	assert.Contains(t, out, "Mirror complete")
	assert.Contains(t, out, "Downloaded: 2")
	assert.Contains(t, out, "a.png")
	assert.FileExists(t, filepath.Join(dest, "index.html"))
	assert.FileExists(t, filepath.Join(dest, "img", "a.png"))
	assert.NoFileExists(t, filepath.Join(dest, "app.js"))
	assert.Equal(t, 0, site.Hits("/app.js"))
	assert.FileExists(t, archivePath)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "sitegrab_fetches_total")

	out, err = execute(t, NewHistoryCmd())
	require.NoError(t, err)
	assert.Contains(t, out, site.URL+"/")
	assert.Contains(t, out, string(history.StatusSuccess))
}

func TestMirrorCmd_RootFailureIsReturned(t *testing.T) {
	setupCLI(t)
	site := testutil.NewSite(t, map[string]testutil.Page{})

	_, err := execute(t, NewMirrorCmd(), site.URL+"/", filepath.Join(t.TempDir(), "out"), "-q", "--no-history")
	assert.ErrorIs(t, err, errors.ErrRootFetchFailed)
}

func TestMirrorCmd_InvalidURL(t *testing.T) {
	setupCLI(t)
	_, err := execute(t, NewMirrorCmd(), "ftp://ex.test/", t.TempDir())
	assert.ErrorIs(t, err, errors.ErrInvalidURL)
}

func TestApplyMirrorFlags(t *testing.T) {
	cmd := NewMirrorCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--concurrency", "9", "--no-js", "--flat", "--timeout", "5s"}))

	s := config.DefaultConfig().Settings
	before := s.UserAgent
	applyMirrorFlags(cmd, &s, mirrorFlags{concurrency: 9, timeout: 5 * time.Second, noScripts: true, flat: true})

	assert.Equal(t, 9, s.Concurrency)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.False(t, s.Include.Scripts)
	assert.True(t, s.Include.Images)
	assert.False(t, s.PreserveStructure)
	assert.Equal(t, before, s.UserAgent, "unchanged flags keep config values")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := progressPrinter(&buf)
	p(1, 4)
	p(4, 4)
	p(0, 0)
	assert.Equal(t,
		"\rDownloading resources: 1/4 (25%)\rDownloading resources: 4/4 (100%)\rDownloading resources: 0/0 (100%)",
		buf.String())
}

func TestResolveServeDir(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	site := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<html></html>"), 0o644))

	t.Run("directory", func(t *testing.T) {
		dir, cleanup, err := resolveServeDir(cmd, site)
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, site, dir)
	})

	t.Run("archive", func(t *testing.T) {
		archivePath := filepath.Join(t.TempDir(), "site.tar.gz")
		require.NoError(t, archive.NewManager().Create(context.Background(), site, archivePath))

		dir, cleanup, err := resolveServeDir(cmd, archivePath)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "index.html"))
		cleanup()
		assert.NoDirExists(t, dir)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := resolveServeDir(cmd, filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}

func TestConfigCmd(t *testing.T) {
	path := setupCLI(t)
	require.NoError(t, os.Remove(path))

	_, err := execute(t, NewConfigCmd(), "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = execute(t, NewConfigCmd(), "init")
	assert.ErrorIs(t, err, errors.ErrConfigFileExists)

	_, err = execute(t, NewConfigCmd(), "set", "concurrency", "7")
	require.NoError(t, err)

	out, err := execute(t, NewConfigCmd(), "get", "concurrency")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	_, err = execute(t, NewConfigCmd(), "set", "concurrency", "0")
	assert.ErrorIs(t, err, errors.ErrConcurrencyInvalid)

	_, err = execute(t, NewConfigCmd(), "set", "nope", "1")
	assert.ErrorIs(t, err, errors.ErrUnknownConfigKey)

	out, err = execute(t, NewConfigCmd(), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "SETTING")
	for _, key := range config.Keys() {
		assert.Contains(t, out, key)
	}

	out, err = execute(t, NewConfigCmd(), "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestHistoryCmd_Show(t *testing.T) {
	path := setupCLI(t)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	store, err := history.Open(cfg.Settings.HistoryDB)
	require.NoError(t, err)
	run := history.Run{
		ID:          "0f0e0d0c-1111-2222-3333-444455556666",
		URL:         "https://ex.test/",
		Destination: "/tmp/out",
		StartedAt:   time.Now(),
		Status:      history.StatusFailed,
		Stage:       "fetch-root",
		Error:       "fetch-root: GET https://ex.test/: status 404",
	}
	require.NoError(t, store.Record(context.Background(), run))
	require.NoError(t, store.Close())

	out, err := execute(t, NewHistoryCmd(), "show", "0f0e0d0c")
	require.NoError(t, err)
	assert.Contains(t, out, run.ID)
	assert.Contains(t, out, "Stage:       fetch-root")

	out, err = execute(t, NewHistoryCmd())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "0f0e0d0c "))

	_, err = execute(t, NewHistoryCmd(), "show", "ffff")
	assert.ErrorIs(t, err, errors.ErrRunNotFound)
}

func TestHistoryCmd_Empty(t *testing.T) {
	setupCLI(t)
	out, err := execute(t, NewHistoryCmd())
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, NewVersionCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "sitegrab version "+Version)

	out, err = execute(t, NewVersionCmd(), "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "2.0 kB", formatBytes(2000))
}
