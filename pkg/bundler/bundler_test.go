// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bundler

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumtech/logbundle/pkg/bundler/config"
	"github.com/aumtech/logbundle/pkg/bundler/result"
	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/coredump"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/matcher"
	"github.com/aumtech/logbundle/pkg/window"
)

var (
	windowStart = time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2023, 5, 1, 23, 59, 0, 0, time.UTC)
	inWindow    = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	afterWindow = time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)
)

type stubInspector struct {
	mu       sync.Mutex
	resolved []string
	exe      string
	trace    string
	err      error
}

func (s *stubInspector) ResolveExecutableName(_ context.Context, dump string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, dump)
	if s.err != nil {
		return "", s.err
	}
	return s.exe, nil
}

func (s *stubInspector) CaptureBacktrace(_ context.Context, exe, dump string) ([]byte, error) {
	return []byte(fmt.Sprintf("%s\n%s: %s", s.trace, exe, filepath.Base(dump))), nil
}

// creationTimes maps base names to creation times; unknown names fall in the window.
func creationTimes(times map[string]time.Time) matcher.Option {
	return matcher.WithCreationTime(func(path string, _ fs.FileInfo) (time.Time, error) {
		if t, ok := times[filepath.Base(path)]; ok {
			return t, nil
		}
		return inWindow, nil
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mustCatalog(t *testing.T, specs ...catalog.SourceSpec) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(specs...)
	require.NoError(t, err)
	return c
}

func newBundler(t *testing.T, cat *catalog.Catalog, out string, insp coredump.Inspector, times map[string]time.Time, opts ...config.Option) *Bundler {
	t.Helper()
	if insp == nil {
		insp = &stubInspector{exe: "myprog", trace: "#0 main ()"}
	}
	b, err := New(cat, window.New(windowStart, windowEnd),
		WithConfig(config.NewConfig(append([]config.Option{config.WithOutputDir(out)}, opts...)...)),
		WithMatcher(matcher.New(creationTimes(times))),
		WithAnalyzer(coredump.NewAnalyzer(insp)),
	)
	require.NoError(t, err)
	return b
}

// readArchive returns entry name to content, failing on duplicate names.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	got := make(map[string]string)
	for _, f := range zr.File {
		_, dup := got[f.Name]
		require.False(t, dup, "duplicate entry %s", f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		got[f.Name] = string(data)
	}
	return got
}

func TestNew(t *testing.T) {
	t.Run("nil catalog", func(t *testing.T) {
		_, err := New(nil, window.New(windowStart, windowEnd))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))
	})

	t.Run("invalid config", func(t *testing.T) {
		cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: t.TempDir(), Pattern: "*.log"})
		_, err := New(cat, window.New(windowStart, windowEnd),
			WithConfig(config.NewConfig(config.WithConcurrency(0))))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))
	})

	t.Run("defaults", func(t *testing.T) {
		cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: t.TempDir(), Pattern: "*.log"})
		b, err := New(cat, window.New(windowStart, windowEnd))
		require.NoError(t, err)
		assert.NotNil(t, b.Config)
		assert.NotNil(t, b.matcher)
		assert.NotNil(t, b.analyzer)
		assert.Equal(t, "aumtech.050123hhmi.zip", b.ArchivePath())
	})
}

func TestRunFiltersByWindow(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "a.log"), "inside")
	writeFile(t, filepath.Join(src, "b.log"), "outside")
	writeFile(t, filepath.Join(src, "c.txt"), "other pattern")

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app1", Path: src, Pattern: "*.log"})
	b := newBundler(t, cat, out, nil, map[string]time.Time{"b.log": afterWindow})

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Files)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, filepath.Join(out, "aumtech.050123hhmi.zip"), res.Archive)

	entries := readArchive(t, res.Archive)
	assert.Equal(t, map[string]string{
		"a.log":          "inside",
		"date_range.txt": "Files collected from 2023-05-01 00:00:00 to 2023-05-01 23:59:00",
	}, entries)
}

func TestRunBasenameCollision(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "x.log"), "from app1")
	writeFile(t, filepath.Join(second, "x.log"), "from app2")

	specs := []catalog.SourceSpec{
		{Source: "app1", Path: first, Pattern: "x.log"},
		{Source: "app2", Path: second, Pattern: "x.log"},
	}

	t.Run("later source wins", func(t *testing.T) {
		b := newBundler(t, mustCatalog(t, specs...), t.TempDir(), nil, nil)
		res, err := b.Run(context.Background())
		require.NoError(t, err)

		entries := readArchive(t, res.Archive)
		assert.Equal(t, "from app2", entries["x.log"])
		assert.Len(t, entries, 2)
	})

	t.Run("qualified names keep both", func(t *testing.T) {
		b := newBundler(t, mustCatalog(t, specs...), t.TempDir(), nil, nil, config.WithQualifyNames(true))
		res, err := b.Run(context.Background())
		require.NoError(t, err)

		entries := readArchive(t, res.Archive)
		assert.Equal(t, "from app1", entries["app1/x.log"])
		assert.Equal(t, "from app2", entries["app2/x.log"])
		assert.Contains(t, entries, "date_range.txt")
	})
}

func TestRunSizeLimitExceeded(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	noise := make([]byte, 64*1024)
	_, err := rand.Read(noise)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(src, "big.log"), noise, 0o644))

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: src, Pattern: "*.log"})
	b := newBundler(t, cat, out, nil, nil, config.WithSizeLimit(4*1024))

	res, err := b.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSizeLimitExceeded))
	require.NotNil(t, res)
	assert.Equal(t, result.StatusSizeExceeded, res.Status)
	assert.Empty(t, res.Archive)

	left, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, left, "no archive or temp file may remain")
}

func TestRunCoreDump(t *testing.T) {
	dumps := t.TempDir()
	logs := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(dumps, "core.1234"), "\x7fELF")
	writeFile(t, filepath.Join(logs, "app.log"), "log line")

	insp := &stubInspector{exe: "myprog", trace: "#0 crash ()"}
	cat := mustCatalog(t,
		catalog.SourceSpec{Source: "core", Path: dumps, Pattern: "core"},
		catalog.SourceSpec{Source: "app", Path: logs, Pattern: "*.log"},
		catalog.SourceSpec{Source: "core-again", Path: dumps, Pattern: "core"},
	)
	b := newBundler(t, cat, out, insp, nil)

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dumps, "core.1234")}, insp.resolved, "dump analysed exactly once")
	require.Len(t, res.Dumps, 1)
	assert.Equal(t, "myprog", res.Dumps[0].Executable)
	assert.False(t, res.HasWarnings())

	entries := readArchive(t, res.Archive)
	assert.Equal(t, "#0 crash ()\nmyprog: core.1234", entries["core.1234.log"])
	assert.Equal(t, "log line", entries["app.log"])
	assert.Contains(t, entries, "date_range.txt")

	_, err = os.Stat(filepath.Join(dumps, "core.1234.log"))
	assert.True(t, os.IsNotExist(err), "transient report must be removed")
}

func TestRunDumpFailureDoesNotBlockLogs(t *testing.T) {
	dumps := t.TempDir()
	logs := t.TempDir()
	writeFile(t, filepath.Join(dumps, "core.1"), "dump")
	writeFile(t, filepath.Join(dumps, "core.2"), "dump")
	writeFile(t, filepath.Join(logs, "app.log"), "still here")

	insp := &stubInspector{err: errors.New(errors.ErrCodeExecutableNameUnresolved, "no execfn marker")}
	cat := mustCatalog(t,
		catalog.SourceSpec{Source: "core", Path: dumps, Pattern: "core"},
		catalog.SourceSpec{Source: "app", Path: logs, Pattern: "*.log"},
	)
	b := newBundler(t, cat, t.TempDir(), insp, nil)

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.StatusSuccess, res.Status)
	assert.Empty(t, res.Dumps)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, errors.ErrCodeExecutableNameUnresolved, res.Warnings[0].Code)

	entries := readArchive(t, res.Archive)
	assert.Equal(t, "still here", entries["app.log"])
	for name := range entries {
		assert.False(t, strings.HasPrefix(name, "core."), "unexpected entry %s", name)
	}
}

func TestRunLogRecordsCarryRunID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	dumps := t.TempDir()
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(dumps, "core.1"), "dump")
	writeFile(t, filepath.Join(dumps, "core.2"), "dump")
	writeFile(t, filepath.Join(first, "x.log"), "one")
	writeFile(t, filepath.Join(first, "old.log"), "old")
	writeFile(t, filepath.Join(second, "x.log"), "two")

	insp := &failingInspector{fail: "core.2"}
	cat := mustCatalog(t,
		catalog.SourceSpec{Source: "core", Path: dumps, Pattern: "core"},
		catalog.SourceSpec{Source: "app1", Path: first, Pattern: "*.log"},
		catalog.SourceSpec{Source: "app2", Path: second, Pattern: "*.log"},
		catalog.SourceSpec{Source: "gone", Path: filepath.Join(t.TempDir(), "missing"), Pattern: "*.log"},
	)
	b := newBundler(t, cat, t.TempDir(), insp, map[string]time.Time{"old.log": afterWindow})

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	msgs := make(map[string]bool)
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.Equal(t, res.RunID, rec["run_id"], "record %q has no run id", rec["msg"])
		msgs[rec["msg"].(string)] = true
	}
	require.NoError(t, sc.Err())

	for _, want := range []string{
		"collection started",
		"source directory does not exist",
		"file outside window",
		"core dumps discovered",
		"core dump analysed",
		"core dump skipped",
		"archive entry overwritten",
		"archive finalized",
		"collection complete",
	} {
		assert.True(t, msgs[want], "missing record %q", want)
	}
}

func TestRunRecordsVersion(t *testing.T) {
	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: t.TempDir(), Pattern: "*.log"})

	res, err := newBundler(t, cat, t.TempDir(), nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev", res.Version)

	res, err = newBundler(t, cat, t.TempDir(), nil, nil, config.WithVersion("v1.2.3")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", res.Version)
}

// failingInspector fails executable resolution for one dump name.
type failingInspector struct {
	fail string
}

func (f *failingInspector) ResolveExecutableName(_ context.Context, dump string) (string, error) {
	if filepath.Base(dump) == f.fail {
		return "", errors.New(errors.ErrCodeExecutableNameUnresolved, "no execfn marker")
	}
	return "myprog", nil
}

func (f *failingInspector) CaptureBacktrace(_ context.Context, _, _ string) ([]byte, error) {
	return []byte("#0 main ()"), nil
}

func TestRunMissingSource(t *testing.T) {
	cat := mustCatalog(t, catalog.SourceSpec{Source: "gone", Path: filepath.Join(t.TempDir(), "missing"), Pattern: "*.log"})
	b := newBundler(t, cat, t.TempDir(), nil, nil)

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)

	entries := readArchive(t, res.Archive)
	assert.Equal(t, []string{"date_range.txt"}, keys(entries))
}

func TestRunInvertedWindow(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.log"), "x")

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: src, Pattern: "*.log"})
	b, err := New(cat, window.New(windowEnd, windowStart),
		WithConfig(config.NewConfig(config.WithOutputDir(t.TempDir()))),
		WithMatcher(matcher.New(creationTimes(nil))),
	)
	require.NoError(t, err)

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)
}

func TestRunCanceled(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "a.log"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: src, Pattern: "*.log"})
	b := newBundler(t, cat, out, nil, nil)

	res, err := b.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, result.StatusAborted, res.Status)

	left, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRunChecksums(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.log"), "content1")

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: src, Pattern: "*.log"})
	b := newBundler(t, cat, t.TempDir(), nil, nil, config.WithIncludeChecksums(true))

	res, err := b.Run(context.Background())
	require.NoError(t, err)

	entries := readArchive(t, res.Archive)
	require.Contains(t, entries, "checksums.txt")
	assert.Contains(t, entries["checksums.txt"], "  a.log\n")
	assert.Contains(t, entries["checksums.txt"], "  date_range.txt\n")
}

func TestWriteMetrics(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.log"), "x")

	cat := mustCatalog(t, catalog.SourceSpec{Source: "app", Path: src, Pattern: "*.log"})
	_, err := newBundler(t, cat, t.TempDir(), nil, nil).Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "logbundle.prom")
	require.NoError(t, WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `logbundle_runs_total{status="success"}`)
	assert.Contains(t, text, `logbundle_files_archived_total{source="app"}`)
	assert.Contains(t, text, "logbundle_run_duration_seconds_bucket")
	assert.NotContains(t, text, "go_goroutines")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteMetricsBadPath(t *testing.T) {
	err := WriteMetrics(filepath.Join(t.TempDir(), "missing", "logbundle.prom"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFileSystem))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
