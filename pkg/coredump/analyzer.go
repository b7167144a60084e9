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

package coredump

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/logging"
)

// EmbedFunc stores a finished report under name.
type EmbedFunc func(name string, data []byte) error

// Record describes one analysed core dump.
type Record struct {
	// DumpPath is the core dump that was analysed.
	DumpPath string `json:"dump" yaml:"dump"`

	// Executable is the program resolved from the dump, if any.
	Executable string `json:"executable,omitempty" yaml:"executable,omitempty"`

	// ReportName is the name the backtrace report was embedded under.
	ReportName string `json:"report,omitempty" yaml:"report,omitempty"`

	// ReportSize is the size of the backtrace in bytes.
	ReportSize int `json:"report_size,omitempty" yaml:"report_size,omitempty"`

	// Duration is the wall time spent on the dump.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTimeout bounds each external tool invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.timeout = d
	}
}

// WithToolRate caps tool launches per second. Zero or less means unlimited.
func WithToolRate(perSecond float64) Option {
	return func(a *Analyzer) {
		if perSecond > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			a.limiter = nil
		}
	}
}

// Analyzer finds core dumps and turns each into an embedded backtrace report.
type Analyzer struct {
	inspector Inspector
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewAnalyzer returns an Analyzer backed by inspector.
func NewAnalyzer(inspector Inspector, opts ...Option) *Analyzer {
	a := &Analyzer{
		inspector: inspector,
		timeout:   defaults.ToolTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Discover lists the core.* files directly under a dump source's path.
// Rules that are not dump sources yield nothing. Leftover reports from an
// interrupted run (core.*.log) are not dumps and are skipped.
func (a *Analyzer) Discover(ctx context.Context, spec catalog.SourceSpec) ([]string, error) {
	if !spec.IsDumpSource() {
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(spec.Path, defaults.DumpGlob))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "invalid dump pattern", err)
	}

	dumps := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, defaults.ReportSuffix) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to stat dump", err,
				map[string]any{"source": spec.Source, "path": p})
		}
		if info.Mode().IsRegular() {
			dumps = append(dumps, p)
		}
	}

	logging.FromContext(ctx).Debug("core dumps discovered", "source", spec.Source, "path", spec.Path, "count", len(dumps))
	return dumps, nil
}

// ReportPath returns the transient report location for a dump.
func ReportPath(dumpPath string) string {
	return dumpPath + defaults.ReportSuffix
}

// Analyze resolves the dump's program, captures a backtrace into
// <dump>.log, hands the report to embed and removes the report file again.
// Errors coded EXECUTABLE_NAME_UNRESOLVED or BACKTRACE_CAPTURE_FAILED concern
// this dump only; any other error comes from ctx or embed.
func (a *Analyzer) Analyze(ctx context.Context, dumpPath string, embed EmbedFunc) (*Record, error) {
	started := time.Now()
	log := logging.FromContext(ctx)
	rec := &Record{DumpPath: dumpPath}
	defer func() {
		rec.Duration = time.Since(started)
	}()

	exe, err := a.resolve(ctx, dumpPath)
	if err != nil {
		return rec, err
	}
	rec.Executable = exe

	trace, err := a.capture(ctx, exe, dumpPath)
	if err != nil {
		return rec, err
	}

	report := ReportPath(dumpPath)
	defer func() {
		if rerr := os.Remove(report); rerr != nil && !os.IsNotExist(rerr) {
			log.Warn("failed to remove transient report", "path", report, "error", rerr)
		}
	}()

	if err := os.WriteFile(report, trace, 0o600); err != nil {
		return rec, errors.WrapWithContext(errors.ErrCodeBacktraceCaptureFailed, "failed to write report", err,
			map[string]any{"dump": dumpPath, "report": report})
	}
	data, err := os.ReadFile(report)
	if err != nil {
		return rec, errors.WrapWithContext(errors.ErrCodeBacktraceCaptureFailed, "failed to read report", err,
			map[string]any{"dump": dumpPath, "report": report})
	}

	name := filepath.Base(report)
	if err := embed(name, data); err != nil {
		return rec, err
	}
	rec.ReportName = name
	rec.ReportSize = len(data)

	log.Info("core dump analysed",
		"dump", dumpPath,
		"executable", exe,
		"report", name,
		"bytes", len(data))

	return rec, nil
}

func (a *Analyzer) resolve(ctx context.Context, dumpPath string) (string, error) {
	tctx, cancel, err := a.toolContext(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	exe, err := a.inspector.ResolveExecutableName(tctx, dumpPath)
	if err != nil {
		return "", classify(err, errors.ErrCodeExecutableNameUnresolved, "failed to resolve executable", dumpPath)
	}
	return exe, nil
}

func (a *Analyzer) capture(ctx context.Context, exe, dumpPath string) ([]byte, error) {
	tctx, cancel, err := a.toolContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	out, err := a.inspector.CaptureBacktrace(tctx, exe, dumpPath)
	if err != nil {
		return nil, classify(err, errors.ErrCodeBacktraceCaptureFailed, "failed to capture backtrace", dumpPath)
	}
	return out, nil
}

// toolContext waits for the launch limiter and applies the per-tool timeout.
func (a *Analyzer) toolContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeCanceled, "waiting to launch tool", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeCanceled, "run canceled", err)
	}
	if a.timeout <= 0 {
		return ctx, func() {}, nil
	}
	tctx, cancel := context.WithTimeout(ctx, a.timeout)
	return tctx, cancel, nil
}

// classify gives inspector failures a per-dump code unless the whole run was
// canceled, in which case the failure is not the dump's fault.
func classify(err error, code errors.ErrorCode, msg, dumpPath string) error {
	if errors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrCodeCanceled, "run canceled", err)
	}
	if errors.IsCode(err, code) {
		return err
	}
	return errors.WrapWithContext(code, msg, err, map[string]any{"dump": dumpPath})
}

// IsDumpFailure reports whether err only affects the dump it came from.
func IsDumpFailure(err error) bool {
	return errors.IsCode(err, errors.ErrCodeExecutableNameUnresolved) ||
		errors.IsCode(err, errors.ErrCodeBacktraceCaptureFailed)
}
