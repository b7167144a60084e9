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
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aumtech/logbundle/pkg/errors"
)

const (
	execFnMarker   = "execfn: "
	platformMarker = ", platform:"
	quoteChars     = `'"`
)

// ParseExecFn extracts the program name from file(1) output for a core dump,
// e.g. "..., execfn: '/usr/bin/app', platform: 'x86_64'" yields "/usr/bin/app".
func ParseExecFn(output string) (string, error) {
	start := strings.Index(output, execFnMarker)
	if start < 0 {
		return "", errors.NewWithContext(errors.ErrCodeExecutableNameUnresolved,
			fmt.Sprintf("inspector output has no %q marker", strings.TrimSpace(execFnMarker)),
			map[string]any{"output": abbreviate(output)})
	}
	rest := output[start+len(execFnMarker):]

	end := strings.Index(rest, platformMarker)
	if end < 0 {
		return "", errors.NewWithContext(errors.ErrCodeExecutableNameUnresolved,
			fmt.Sprintf("inspector output has no %q marker", strings.TrimPrefix(platformMarker, ", ")),
			map[string]any{"output": abbreviate(output)})
	}

	name := strings.Trim(strings.TrimSpace(rest[:end]), quoteChars)
	if name == "" {
		return "", errors.NewWithContext(errors.ErrCodeExecutableNameUnresolved,
			"inspector output names an empty executable",
			map[string]any{"output": abbreviate(output)})
	}
	return name, nil
}

// abbreviate keeps error context readable when a tool prints a lot.
func abbreviate(s string) string {
	const limit = 256
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
