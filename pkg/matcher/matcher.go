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

package matcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aumtech/logbundle/pkg/catalog"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/logging"
	"github.com/aumtech/logbundle/pkg/window"
)

// Candidate is a regular file produced by expanding a source rule.
type Candidate struct {
	Spec    catalog.SourceSpec `json:"spec" yaml:"spec"`
	Path    string             `json:"path" yaml:"path"`
	Created time.Time          `json:"created" yaml:"created"`
	Size    int64              `json:"size" yaml:"size"`
}

// CreationTimeFunc returns the timestamp a file is filtered on.
type CreationTimeFunc func(path string, info fs.FileInfo) (time.Time, error)

// Option configures a Matcher.
type Option func(*Matcher)

// WithCreationTime overrides how file timestamps are read.
func WithCreationTime(fn CreationTimeFunc) Option {
	return func(m *Matcher) {
		if fn != nil {
			m.creationTime = fn
		}
	}
}

// Matcher expands source rules into files and filters them by creation time.
type Matcher struct {
	creationTime CreationTimeFunc
}

// New returns a Matcher reading the file system change time (ctime).
func New(opts ...Option) *Matcher {
	m := &Matcher{creationTime: ChangeTime}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expand returns every regular file the rule's pattern resolves to, in lexical
// order, with its creation timestamp. A missing directory yields no files.
func (m *Matcher) Expand(ctx context.Context, spec catalog.SourceSpec) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCanceled, "matching canceled", err)
	}

	log := logging.FromContext(ctx)
	ectx := map[string]any{"source": spec.Source, "path": spec.Path}

	dir, err := os.Open(spec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("source directory does not exist", "source", spec.Source, "path", spec.Path)
			return nil, nil
		}
		return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to open source directory", err, ectx)
	}
	dir.Close()

	pattern := filepath.Join(spec.Path, spec.Pattern)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfig, "invalid filename pattern", err,
			map[string]any{"source": spec.Source, "pattern": spec.Pattern})
	}

	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debug("file vanished before stat", "path", p)
				continue
			}
			return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to stat file", err,
				map[string]any{"source": spec.Source, "path": p})
		}
		if !info.Mode().IsRegular() {
			continue
		}

		created, err := m.creationTime(p, info)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to read creation time", err,
				map[string]any{"source": spec.Source, "path": p})
		}

		out = append(out, Candidate{Spec: spec, Path: p, Created: created, Size: info.Size()})
	}

	return out, nil
}

// Match expands the rule and keeps the files created inside w.
func (m *Matcher) Match(ctx context.Context, spec catalog.SourceSpec, w window.Window) ([]Candidate, error) {
	all, err := m.Expand(ctx, spec)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	kept := all[:0]
	for _, c := range all {
		if w.Contains(c.Created) {
			kept = append(kept, c)
			continue
		}
		log.Debug("file outside window", "path", c.Path, "created", c.Created)
	}

	log.Debug("source rule matched",
		"source", spec.Source,
		"path", spec.Path,
		"pattern", spec.Pattern,
		"expanded", len(all),
		"kept", len(kept))

	return kept, nil
}

// MatchAll matches every rule with up to workers rules in flight. Results are
// indexed like specs so callers can consume them in declaration order. The
// first failure cancels the remaining work.
func MatchAll(ctx context.Context, m *Matcher, specs []catalog.SourceSpec, w window.Window, workers int) ([][]Candidate, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([][]Candidate, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, spec := range specs {
		g.Go(func() error {
			matched, err := m.Match(gctx, spec, w)
			if err != nil {
				return fmt.Errorf("matching %s: %w", spec, err)
			}
			results[i] = matched
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
