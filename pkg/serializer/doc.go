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

// Package serializer renders run summaries for people and scripts.
//
// Three formats are supported:
//   - JSON: indented, field names from json tags
//   - YAML: two-space indent, field names from yaml tags
//   - Table: one FIELD/VALUE row per leaf, keys built from json names
//
// Usage:
//
//	w := serializer.NewWriter(serializer.FormatTable, os.Stdout)
//	if err := w.Serialize(ctx, out); err != nil {
//	    return err
//	}
//
// A table for a run summary looks like:
//
//	FIELD               VALUE
//	-----               -----
//	archive             aumtech.050123hhmi.zip
//	archive_size_bytes  10240
//	files               12
//	status              success
//	warnings[0].code    EXECUTABLE_NAME_UNRESOLVED
//
// NewFileWriterOrStdout writes to a file instead and falls back to stdout
// when the file cannot be created; call Close when done.
package serializer
