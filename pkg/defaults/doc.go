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

// Package defaults provides centralized constants for a collection run.
//
// Archive naming, the archive size ceiling, external tool names and the
// per-invocation tool timeout live here so the CLI flags and the pipeline
// agree on the same values.
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.ToolTimeout)
//	defer cancel()
package defaults
