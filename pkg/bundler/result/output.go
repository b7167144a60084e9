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

package result

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aumtech/logbundle/pkg/coredump"
	"github.com/aumtech/logbundle/pkg/errors"
)

// Status is the end-of-run outcome.
type Status string

const (
	// StatusSuccess means the archive was finalized.
	StatusSuccess Status = "success"
	// StatusSizeExceeded means the archive outgrew its limit and was discarded.
	StatusSizeExceeded Status = "size-exceeded"
	// StatusAborted means the run stopped on an error before finalizing.
	StatusAborted Status = "aborted"
)

// DumpWarning records a core dump whose report could not be produced.
type DumpWarning struct {
	Dump  string           `json:"dump" yaml:"dump"`
	Code  errors.ErrorCode `json:"code" yaml:"code"`
	Error string           `json:"error" yaml:"error"`
}

// Output summarizes a collection run.
type Output struct {
	// RunID correlates the summary with the run's log records.
	RunID string `json:"run_id" yaml:"run_id"`

	// Version is the collector version that produced the run.
	Version string `json:"version" yaml:"version"`

	// Status is the outcome of the run.
	Status Status `json:"status" yaml:"status"`

	// Reason explains a non-success status.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Window is the collection window as written to the manifest.
	Window string `json:"window" yaml:"window"`

	// Archive is the path of the finalized archive.
	Archive string `json:"archive,omitempty" yaml:"archive,omitempty"`

	// ArchiveSize is the archive size in bytes.
	ArchiveSize int64 `json:"archive_size_bytes,omitempty" yaml:"archive_size_bytes,omitempty"`

	// Entries lists the archive entry names.
	Entries []string `json:"entries,omitempty" yaml:"entries,omitempty"`

	// Files is the number of matched files added to the archive.
	Files int `json:"files" yaml:"files"`

	// Dumps lists the analysed core dumps whose reports were embedded.
	Dumps []*coredump.Record `json:"dumps,omitempty" yaml:"dumps,omitempty"`

	// Warnings lists core dumps that could not be analysed.
	Warnings []DumpWarning `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// AddWarning records a per-dump failure.
func (o *Output) AddWarning(dump string, err error) {
	o.Warnings = append(o.Warnings, DumpWarning{
		Dump:  dump,
		Code:  errors.CodeOf(err),
		Error: err.Error(),
	})
}

// Fail marks the run as failed, deriving the status from err.
func (o *Output) Fail(err error) {
	o.Status = StatusAborted
	if errors.IsCode(err, errors.ErrCodeSizeLimitExceeded) {
		o.Status = StatusSizeExceeded
	}
	o.Reason = err.Error()
	o.Archive = ""
	o.ArchiveSize = 0
	o.Entries = nil
}

// HasWarnings reports whether any dump could not be analysed.
func (o *Output) HasWarnings() bool {
	return len(o.Warnings) > 0
}

// Succeeded reports whether the archive was produced.
func (o *Output) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Summary returns a one-line human-readable status.
func (o *Output) Summary() string {
	p := message.NewPrinter(language.English)
	switch o.Status {
	case StatusSuccess:
		s := p.Sprintf("Collected %d files and %d dump reports into %s (%s) in %v.",
			o.Files, len(o.Dumps), o.Archive, formatBytes(o.ArchiveSize), o.Duration.Round(time.Millisecond))
		if o.HasWarnings() {
			s += p.Sprintf(" %d core dumps could not be analysed.", len(o.Warnings))
		}
		return s
	case StatusSizeExceeded:
		return fmt.Sprintf("Archive size limit exceeded, no archive was written: %s", o.Reason)
	default:
		return fmt.Sprintf("Collection aborted: %s", o.Reason)
	}
}

// formatBytes formats bytes into human-readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
