/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package bundler

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aumtech/logbundle/pkg/archive"
	"github.com/aumtech/logbundle/pkg/bundler/config"
	"github.com/aumtech/logbundle/pkg/bundler/result"
	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/coredump"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/logging"
	"github.com/aumtech/logbundle/pkg/matcher"
	"github.com/aumtech/logbundle/pkg/window"
)

// Bundler owns one collection run: it matches every catalog source against
// the window, analyses core dumps and writes the archive.
//
// Sources are matched concurrently but the archive has a single writer, so
// entries are added in catalog order and a later entry with the same name
// replaces an earlier one deterministically.
type Bundler struct {
	// Config provides run settings such as the output directory and size limit.
	Config *config.Config

	catalog  *catalog.Catalog
	window   window.Window
	matcher  *matcher.Matcher
	analyzer *coredump.Analyzer
}

// Option defines a functional option for configuring Bundler.
type Option func(*Bundler)

// WithConfig sets the run configuration.
func WithConfig(cfg *config.Config) Option {
	return func(b *Bundler) {
		if cfg != nil {
			b.Config = cfg
		}
	}
}

// WithMatcher replaces the default file matcher.
func WithMatcher(m *matcher.Matcher) Option {
	return func(b *Bundler) {
		if m != nil {
			b.matcher = m
		}
	}
}

// WithAnalyzer replaces the default core dump analyzer.
func WithAnalyzer(a *coredump.Analyzer) Option {
	return func(b *Bundler) {
		if a != nil {
			b.analyzer = a
		}
	}
}

// New creates a Bundler for the sources in cat and the window w.
//
// Example:
//
//	b, err := bundler.New(cat, w,
//	    bundler.WithConfig(config.NewConfig(
//	        config.WithOutputDir("/var/tmp"),
//	    )),
//	)
func New(cat *catalog.Catalog, w window.Window, opts ...Option) (*Bundler, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "source catalog cannot be empty")
	}

	b := &Bundler{
		Config:  config.NewConfig(),
		catalog: cat,
		window:  w,
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := b.Config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "invalid run configuration", err)
	}
	if b.matcher == nil {
		b.matcher = matcher.New()
	}
	if b.analyzer == nil {
		b.analyzer = coredump.NewAnalyzer(
			coredump.NewExecInspector("", ""),
			coredump.WithTimeout(b.Config.ToolTimeout()),
			coredump.WithToolRate(b.Config.ToolRate()),
		)
	}
	return b, nil
}

// ArchivePath returns where the run writes its archive.
func (b *Bundler) ArchivePath() string {
	return filepath.Join(b.Config.OutputDir(), b.window.ArchiveName())
}

// Run performs the collection and returns its summary. The summary is
// returned even when err is not nil so callers can report the status.
//
// Core dump failures (EXECUTABLE_NAME_UNRESOLVED, BACKTRACE_CAPTURE_FAILED)
// become warnings and the run continues. Every other failure discards the
// archive and ends the run.
func (b *Bundler) Run(ctx context.Context) (*result.Output, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := slog.With("run_id", runID)
	ctx = logging.WithLogger(ctx, log)

	out := &result.Output{
		RunID:   runID,
		Version: b.Config.Version(),
		Window:  b.window.String(),
	}

	finish := func(err error) (*result.Output, error) {
		out.Duration = time.Since(start)
		if err != nil {
			out.Fail(err)
			log.Error("collection failed", "status", out.Status, "error", err)
		}
		runsTotal.WithLabelValues(string(out.Status)).Inc()
		runDuration.Observe(out.Duration.Seconds())
		return out, err
	}

	if b.window.Inverted() {
		log.Warn("collection window starts after it ends, no files will match",
			"window", b.window.String())
	}

	log.Info("collection started",
		"version", out.Version,
		"sources", b.catalog.Sources(),
		"rules", b.catalog.Len(),
		"window", b.window.String(),
		"archive", b.ArchivePath())

	ab, err := archive.New(b.ArchivePath(), b.archiveOptions(log)...)
	if err != nil {
		return finish(err)
	}

	if err := b.collect(ctx, log, ab, out); err != nil {
		ab.Discard()
		return finish(err)
	}

	if err := ab.WriteManifest(b.window); err != nil {
		ab.Discard()
		return finish(err)
	}

	res, err := ab.FinalizeOrDiscard(b.Config.SizeLimit())
	if err != nil {
		return finish(err)
	}

	out.Status = result.StatusSuccess
	out.Archive = res.Path
	out.ArchiveSize = res.Size
	out.Entries = res.Entries
	archiveBytes.Set(float64(res.Size))

	log.Info("collection complete",
		"archive", res.Path,
		"bytes", res.Size,
		"files", out.Files,
		"dumps", len(out.Dumps),
		"dump_warnings", len(out.Warnings))

	return finish(nil)
}

// collect matches all sources and stages their files and dump reports.
func (b *Bundler) collect(ctx context.Context, log *slog.Logger, ab *archive.Builder, out *result.Output) error {
	specs := b.catalog.Specs()

	matches, err := matcher.MatchAll(ctx, b.matcher, specs, b.window, b.Config.Concurrency())
	if err != nil {
		return err
	}

	analysed := make(map[string]struct{})
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, "run canceled", err)
		}

		for _, c := range matches[i] {
			if err := ab.AddFile(b.entryName(spec, filepath.Base(c.Path)), c.Path); err != nil {
				return err
			}
			out.Files++
			filesArchived.WithLabelValues(spec.Source).Inc()
		}

		if !spec.IsDumpSource() {
			continue
		}

		dumps, err := b.analyzer.Discover(ctx, spec)
		if err != nil {
			return err
		}
		for _, dump := range dumps {
			if _, seen := analysed[dump]; seen {
				continue
			}
			analysed[dump] = struct{}{}

			if err := b.analyze(ctx, log, ab, spec, dump, out); err != nil {
				return err
			}
		}
	}

	return nil
}

// analyze runs one dump through the analyzer. Only failures that concern
// more than this dump are returned.
func (b *Bundler) analyze(ctx context.Context, log *slog.Logger, ab *archive.Builder, spec catalog.SourceSpec, dump string, out *result.Output) error {
	embed := func(name string, data []byte) error {
		return ab.AddBytes(b.entryName(spec, name), data)
	}

	rec, err := b.analyzer.Analyze(ctx, dump, embed)
	if err != nil {
		if !coredump.IsDumpFailure(err) {
			return err
		}
		dumpAnalyses.WithLabelValues("failed").Inc()
		out.AddWarning(dump, err)
		log.Warn("core dump skipped",
			"source", spec.Source,
			"dump", dump,
			"code", errors.CodeOf(err),
			"error", err)
		return nil
	}

	dumpAnalyses.WithLabelValues("success").Inc()
	out.Dumps = append(out.Dumps, rec)
	return nil
}

func (b *Bundler) archiveOptions(log *slog.Logger) []archive.Option {
	opts := []archive.Option{
		archive.WithChecksums(b.Config.IncludeChecksums()),
		archive.WithLogger(log),
	}
	if b.Config.Store() {
		opts = append(opts, archive.WithStore())
	}
	return opts
}

// entryName is the archive name for a file: its basename, or
// <source>/<basename> when names are qualified.
func (b *Bundler) entryName(spec catalog.SourceSpec, base string) string {
	if b.Config.QualifyNames() {
		return path.Join(spec.Source, base)
	}
	return base
}
