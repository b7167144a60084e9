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

// Package result describes the outcome of a collection run.
//
// Output carries the end-of-run status (success, size-exceeded or aborted),
// the archive path on success, the analysed dumps and a warning for every
// dump that could not be analysed. It serializes to JSON and YAML and has a
// one-line Summary for terminals:
//
//	Collected 12 files and 1 dump reports into ./aumtech.050123hhmi.zip (1.2 MB) in 3.2s.
package result
