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

package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aumtech/logbundle/pkg/bundler/checksum"
	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
	"github.com/aumtech/logbundle/pkg/window"
)

const archiveMode = 0o644

// entry is one staged archive member. Exactly one of path or data is set.
type entry struct {
	name     string
	path     string
	data     []byte
	size     int64
	modified time.Time
}

// Result describes a finalized archive.
type Result struct {
	Path    string   `json:"path" yaml:"path"`
	Size    int64    `json:"size" yaml:"size"`
	Entries []string `json:"entries" yaml:"entries"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithStore stores entries uncompressed instead of deflating them.
func WithStore() Option {
	return func(b *Builder) {
		b.method = zip.Store
	}
}

// WithChecksums appends a checksums.txt entry covering every other entry.
func WithChecksums(enabled bool) Option {
	return func(b *Builder) {
		b.checksums = enabled
	}
}

// WithLogger sets the logger for archive events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// Builder is the single writer of an output archive.
//
// Entries are staged by name and written in one pass by FinalizeOrDiscard,
// which builds the zip next to the destination and renames it into place
// only when it fits under the size limit. Adding an existing name replaces
// the earlier content. Builder is not safe for concurrent use.
type Builder struct {
	path      string
	method    uint16
	checksums bool
	log       *slog.Logger

	entries []*entry
	index   map[string]int
	done    bool
}

// New returns a builder for the archive at path. Nothing is written until
// FinalizeOrDiscard.
func New(path string, opts ...Option) (*Builder, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInternal, "archive path is empty")
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "archive directory is not accessible", err,
			map[string]any{"dir": dir})
	}
	if !info.IsDir() {
		return nil, errors.NewWithContext(errors.ErrCodeFileSystem, "archive directory is not a directory",
			map[string]any{"dir": dir})
	}

	b := &Builder{
		path:   path,
		method: zip.Deflate,
		log:    slog.Default(),
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Path returns the destination of the archive.
func (b *Builder) Path() string {
	return b.path
}

// AddFile stages the file at path under name. The file must be a regular
// file now; its content is read when the archive is finalized.
func (b *Builder) AddFile(name, path string) error {
	if err := b.check(name); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to stat archive input", err,
			map[string]any{"path": path, "entry": name})
	}
	if !info.Mode().IsRegular() {
		return errors.NewWithContext(errors.ErrCodeFileSystem, "archive input is not a regular file",
			map[string]any{"path": path, "entry": name})
	}
	b.put(&entry{name: name, path: path, size: info.Size(), modified: info.ModTime()})
	return nil
}

// AddBytes stages data under name.
func (b *Builder) AddBytes(name string, data []byte) error {
	if err := b.check(name); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	b.put(&entry{name: name, data: buf, size: int64(len(buf)), modified: time.Now()})
	return nil
}

// WriteManifest stages the date range entry describing w.
func (b *Builder) WriteManifest(w window.Window) error {
	return b.AddBytes(defaults.ManifestEntryName, []byte(w.Manifest()))
}

// Entries returns the staged entry names in write order.
func (b *Builder) Entries() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.name
	}
	return names
}

// Size returns the uncompressed size of the staged content.
func (b *Builder) Size() int64 {
	var n int64
	for _, e := range b.entries {
		n += e.size
	}
	return n
}

// Discard drops all staged content. No file is written.
func (b *Builder) Discard() {
	b.entries = nil
	b.index = make(map[string]int)
	b.done = true
}

// FinalizeOrDiscard writes the archive. When the archive would exceed limit
// bytes (limit <= 0 disables the check) nothing is left at the destination
// and a SIZE_LIMIT_EXCEEDED error is returned. Any other failure also leaves
// no archive behind.
func (b *Builder) FinalizeOrDiscard(limit int64) (*Result, error) {
	if b.done {
		return nil, errors.New(errors.ErrCodeInternal, "archive already finalized")
	}
	b.done = true

	dir, base := filepath.Split(b.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to create archive", err,
			map[string]any{"dir": dir})
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(archiveMode); err != nil {
		b.log.Debug("failed to set archive mode", "path", tmpPath, "error", err)
	}

	size, err := b.write(tmp, limit)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = errors.Wrap(errors.ErrCodeFileSystem, "failed to close archive", cerr)
	}
	if err == nil && limit > 0 && size > limit {
		err = errSizeLimit
	}

	if err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil && !os.IsNotExist(rerr) {
			b.log.Warn("failed to remove partial archive", "path", tmpPath, "error", rerr)
		}
		if errors.Is(err, errSizeLimit) {
			b.removeStale()
			return nil, errors.NewWithContext(errors.ErrCodeSizeLimitExceeded,
				fmt.Sprintf("archive exceeds the %d byte limit and was discarded", limit),
				map[string]any{"path": b.path, "limit": limit})
		}
		return nil, err
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to move archive into place", err,
			map[string]any{"path": b.path})
	}

	res := &Result{Path: b.path, Size: size, Entries: b.Entries()}
	if b.checksums {
		res.Entries = append(res.Entries, checksum.ChecksumFileName)
	}
	b.log.Debug("archive finalized", "path", b.path, "bytes", size, "entries", len(res.Entries))
	return res, nil
}

// removeStale deletes an archive left at the destination by an earlier run so
// a failed run never leaves a file at its output path.
func (b *Builder) removeStale() {
	if err := os.Remove(b.path); err == nil {
		b.log.Warn("removed stale archive at output path", "path", b.path)
	} else if !os.IsNotExist(err) {
		b.log.Warn("failed to remove stale archive", "path", b.path, "error", err)
	}
}

func (b *Builder) write(f *os.File, limit int64) (int64, error) {
	lw := &limitWriter{w: f, limit: limit}
	zw := zip.NewWriter(lw)

	var sums []checksum.Sum
	for _, e := range b.entries {
		sum, err := b.writeEntry(zw, e)
		if err != nil {
			return lw.n, err
		}
		sums = append(sums, sum)
	}

	if b.checksums {
		data := checksum.Format(sums)
		if _, err := b.writeEntry(zw, &entry{name: checksum.ChecksumFileName, data: data, modified: time.Now()}); err != nil {
			return lw.n, err
		}
	}

	if err := zw.Close(); err != nil {
		return lw.n, classifyWrite(err, "failed to finish archive", nil)
	}
	return lw.n, nil
}

func (b *Builder) writeEntry(zw *zip.Writer, e *entry) (checksum.Sum, error) {
	ectx := map[string]any{"entry": e.name}
	hdr := &zip.FileHeader{Name: e.name, Method: b.method, Modified: e.modified}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return checksum.Sum{}, classifyWrite(err, "failed to add archive entry", ectx)
	}

	h := checksum.NewHasher(e.name)
	dst := h.Writer(w)

	if e.path == "" {
		if _, err := dst.Write(e.data); err != nil {
			return checksum.Sum{}, classifyWrite(err, "failed to write archive entry", ectx)
		}
		return h.Sum(), nil
	}

	src, err := os.Open(e.path)
	if err != nil {
		ectx["path"] = e.path
		return checksum.Sum{}, errors.WrapWithContext(errors.ErrCodeFileSystem, "failed to open archive input", err, ectx)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		ectx["path"] = e.path
		return checksum.Sum{}, classifyWrite(err, "failed to copy archive input", ectx)
	}
	return h.Sum(), nil
}

func (b *Builder) check(name string) error {
	if b.done {
		return errors.NewWithContext(errors.ErrCodeInternal, "archive already finalized", map[string]any{"entry": name})
	}
	if name == "" {
		return errors.New(errors.ErrCodeInternal, "archive entry name is empty")
	}
	if b.checksums && name == checksum.ChecksumFileName {
		return errors.NewWithContext(errors.ErrCodeInternal, "entry name is reserved", map[string]any{"entry": name})
	}
	return nil
}

func (b *Builder) put(e *entry) {
	if i, ok := b.index[e.name]; ok {
		b.log.Warn("archive entry overwritten", "entry", e.name, "previous", b.entries[i].path, "current", e.path)
		b.entries[i] = e
		return
	}
	b.index[e.name] = len(b.entries)
	b.entries = append(b.entries, e)
}

func classifyWrite(err error, msg string, ectx map[string]any) error {
	if errors.Is(err, errSizeLimit) {
		return err
	}
	return errors.WrapWithContext(errors.ErrCodeFileSystem, msg, err, ectx)
}
