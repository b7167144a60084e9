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

// Package config provides configuration options for a collection run.
//
// Config is immutable once built and is assembled from functional options:
//
//	cfg := config.NewConfig(
//	    config.WithOutputDir("/var/tmp"),
//	    config.WithSizeLimit(512<<20),
//	    config.WithToolTimeout(2*time.Minute),
//	)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Configuration Options
//
//   - OutputDir: directory the archive is written to (default ".")
//   - SizeLimit: archive ceiling in bytes (default 1 GiB, <= 0 disables)
//   - QualifyNames: name entries <source>/<basename> so equal basenames from
//     different sources do not replace each other
//   - IncludeChecksums: append a SHA256 checksums.txt entry
//   - Store: write entries without compression
//   - Concurrency: sources matched at once (default 4)
//   - ToolTimeout: bound for each file/gdb invocation (default 5m, 0 disables)
//   - ToolRate: external tool launches per second (0 = unlimited)
//   - Version: collector version
package config
