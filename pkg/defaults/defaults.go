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

package defaults

import "time"

// Archive limits.
const (
	// ArchiveSizeLimit is the ceiling for the finished archive (1 GiB).
	ArchiveSizeLimit int64 = 1024 * 1024 * 1024

	// ArchivePrefix and ArchiveSuffix frame the MMDDYY stamp in the archive name.
	ArchivePrefix = "aumtech."
	ArchiveSuffix = "hhmi.zip"

	// ManifestEntryName is the archive entry describing the collection window.
	ManifestEntryName = "date_range.txt"

	// ReportSuffix is appended to a dump path to name its backtrace report.
	ReportSuffix = ".log"
)

// External tool defaults.
const (
	// ToolTimeout bounds a single file or gdb invocation.
	ToolTimeout = 5 * time.Minute

	// FileTool is the file-type inspector used to name a dump's program.
	FileTool = "file"

	// Debugger produces the backtrace report.
	Debugger = "gdb"
)

// Matching defaults.
const (
	// MatchConcurrency is the number of sources scanned at the same time.
	MatchConcurrency = 4

	// DumpSourcePattern marks a source entry as holding core dumps.
	DumpSourcePattern = "core"

	// DumpGlob selects the dump files under a dump source path.
	DumpGlob = "core.*"
)

// CLI defaults.
const (
	// ConfigFile is read when --config is not given.
	ConfigFile = "config.json"

	// MetricsFileMode is the permission used for the metrics textfile.
	MetricsFileMode = 0o644
)
