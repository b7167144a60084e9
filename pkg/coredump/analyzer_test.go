package coredump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/errors"
)

// fakeInspector records calls and returns canned results.
type fakeInspector struct {
	mu        sync.Mutex
	exe       string
	resolveFn func(ctx context.Context, dump string) (string, error)
	trace     string
	captureFn func(ctx context.Context, exe, dump string) ([]byte, error)
	resolved  []string
	captured  []string
}

func (f *fakeInspector) ResolveExecutableName(ctx context.Context, dump string) (string, error) {
	f.mu.Lock()
	f.resolved = append(f.resolved, dump)
	f.mu.Unlock()
	if f.resolveFn != nil {
		return f.resolveFn(ctx, dump)
	}
	return f.exe, nil
}

func (f *fakeInspector) CaptureBacktrace(ctx context.Context, exe, dump string) ([]byte, error) {
	f.mu.Lock()
	f.captured = append(f.captured, exe+"|"+dump)
	f.mu.Unlock()
	if f.captureFn != nil {
		return f.captureFn(ctx, exe, dump)
	}
	return []byte(f.trace), nil
}

type collected struct {
	names []string
	data  map[string][]byte
}

func (c *collected) embed(name string, data []byte) error {
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.names = append(c.names, name)
	c.data[name] = data
	return nil
}

func newDump(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("ELF"), 0o600))
	return p
}

func TestAnalyzeSuccess(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.4242")
	fi := &fakeInspector{exe: "/usr/bin/app", trace: "#0  0x0000 in main () at app.c:10\n"}
	var sink collected

	rec, err := NewAnalyzer(fi).Analyze(context.Background(), dump, sink.embed)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/app", rec.Executable)
	assert.Equal(t, "core.4242.log", rec.ReportName)
	assert.Equal(t, []string{"core.4242.log"}, sink.names)
	assert.Equal(t, "#0  0x0000 in main () at app.c:10\n", string(sink.data["core.4242.log"]))
	assert.Equal(t, []string{"/usr/bin/app|" + dump}, fi.captured)

	_, statErr := os.Stat(ReportPath(dump))
	assert.True(t, os.IsNotExist(statErr), "transient report must be removed")
}

func TestAnalyzeResolveFailure(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.1")
	fi := &fakeInspector{resolveFn: func(context.Context, string) (string, error) {
		return ParseExecFn("core.1: data")
	}}
	var sink collected

	rec, err := NewAnalyzer(fi).Analyze(context.Background(), dump, sink.embed)
	require.Error(t, err)
	assert.True(t, IsDumpFailure(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeExecutableNameUnresolved))
	assert.Empty(t, rec.Executable)
	assert.Empty(t, fi.captured, "debugger must not run without an executable")
	assert.Empty(t, sink.names)
}

func TestAnalyzeCaptureFailureIsClassified(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.2")
	fi := &fakeInspector{
		exe:       "app",
		captureFn: func(context.Context, string, string) ([]byte, error) { return nil, fmt.Errorf("exit status 1") },
	}
	var sink collected

	_, err := NewAnalyzer(fi).Analyze(context.Background(), dump, sink.embed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBacktraceCaptureFailed))
	assert.Empty(t, sink.names)

	_, statErr := os.Stat(ReportPath(dump))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAnalyzeReportUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	dump := newDump(t, dir, "core.3")
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	fi := &fakeInspector{exe: "app", trace: "bt"}
	var sink collected

	_, err := NewAnalyzer(fi).Analyze(context.Background(), dump, sink.embed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBacktraceCaptureFailed))
}

func TestAnalyzeEmbedFailureRemovesReport(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.5")
	fi := &fakeInspector{exe: "app", trace: "bt"}

	_, err := NewAnalyzer(fi).Analyze(context.Background(), dump, func(string, []byte) error {
		return errors.New(errors.ErrCodeFileSystem, "archive closed")
	})
	require.Error(t, err)
	assert.False(t, IsDumpFailure(err))

	_, statErr := os.Stat(ReportPath(dump))
	assert.True(t, os.IsNotExist(statErr), "report must be removed even when embedding fails")
}

func TestAnalyzeTimeoutIsDumpFailure(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.6")
	fi := &fakeInspector{
		exe: "app",
		captureFn: func(ctx context.Context, _, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	var sink collected

	_, err := NewAnalyzer(fi, WithTimeout(20*time.Millisecond)).Analyze(context.Background(), dump, sink.embed)
	require.Error(t, err)
	assert.True(t, IsDumpFailure(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzeCanceledRun(t *testing.T) {
	dir := t.TempDir()
	dump := newDump(t, dir, "core.7")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sink collected
	_, err := NewAnalyzer(&fakeInspector{exe: "app"}).Analyze(ctx, dump, sink.embed)
	require.Error(t, err)
	assert.False(t, IsDumpFailure(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeCanceled))
}

func TestAnalyzeWithToolRate(t *testing.T) {
	dir := t.TempDir()
	fi := &fakeInspector{exe: "app", trace: "bt"}
	a := NewAnalyzer(fi, WithToolRate(1000))
	var sink collected

	for i := range 3 {
		_, err := a.Analyze(context.Background(), newDump(t, dir, fmt.Sprintf("core.%d", i)), sink.embed)
		require.NoError(t, err)
	}
	assert.Len(t, sink.names, 3)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	newDump(t, dir, "core.200")
	newDump(t, dir, "core.100")
	newDump(t, dir, "core")
	newDump(t, dir, "core.100.log")
	newDump(t, dir, "app.log")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "core.d"), 0o755))

	a := NewAnalyzer(&fakeInspector{})

	dumps, err := a.Discover(context.Background(), catalog.SourceSpec{Source: "crash", Path: dir, Pattern: "core"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "core.100"), filepath.Join(dir, "core.200")}, dumps)

	dumps, err = a.Discover(context.Background(), catalog.SourceSpec{Source: "crash", Path: dir, Pattern: "*.log"})
	require.NoError(t, err)
	assert.Empty(t, dumps, "only dump sources are searched")

	dumps, err = a.Discover(context.Background(), catalog.SourceSpec{Source: "crash", Path: filepath.Join(dir, "missing"), Pattern: "core"})
	require.NoError(t, err)
	assert.Empty(t, dumps)
}
