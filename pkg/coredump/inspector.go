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
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
)

// waitDelay bounds how long a killed tool may keep its output pipes open.
const waitDelay = 2 * time.Second

// Inspector is what the analyzer needs from the host's tooling.
type Inspector interface {
	// ResolveExecutableName names the program that produced the dump.
	ResolveExecutableName(ctx context.Context, dumpPath string) (string, error)

	// CaptureBacktrace returns the debugger's full backtrace for the dump.
	CaptureBacktrace(ctx context.Context, executable, dumpPath string) ([]byte, error)
}

// ExecInspector implements Inspector by running file(1) and gdb.
type ExecInspector struct {
	// FileTool is the file-type inspector binary. Defaults to "file".
	FileTool string

	// Debugger is the debugger binary. Defaults to "gdb".
	Debugger string
}

// NewExecInspector returns an inspector using the given binaries, falling back
// to the defaults for empty names.
func NewExecInspector(fileTool, debugger string) *ExecInspector {
	if fileTool == "" {
		fileTool = defaults.FileTool
	}
	if debugger == "" {
		debugger = defaults.Debugger
	}
	return &ExecInspector{FileTool: fileTool, Debugger: debugger}
}

// ResolveExecutableName runs the file-type inspector against the dump and
// parses the execfn field out of its description.
func (e *ExecInspector) ResolveExecutableName(ctx context.Context, dumpPath string) (string, error) {
	ectx := map[string]any{"tool": e.FileTool, "dump": dumpPath}

	bin, err := exec.LookPath(e.FileTool)
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeExecutableNameUnresolved, "file inspector not found", err, ectx)
	}

	cmd := exec.CommandContext(ctx, bin, dumpPath)
	cmd.WaitDelay = waitDelay
	out, err := cmd.Output()
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeExecutableNameUnresolved, "file inspector failed",
			toolError(ctx, err), ectx)
	}

	return ParseExecFn(string(out))
}

// CaptureBacktrace runs the debugger in batch mode with a "bt full" directive
// and returns its combined output.
func (e *ExecInspector) CaptureBacktrace(ctx context.Context, executable, dumpPath string) ([]byte, error) {
	ectx := map[string]any{"tool": e.Debugger, "executable": executable, "dump": dumpPath}

	bin, err := exec.LookPath(e.Debugger)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeBacktraceCaptureFailed, "debugger not found", err, ectx)
	}

	cmd := exec.CommandContext(ctx, bin, "-batch", "-ex", "bt full", executable, dumpPath)
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err != nil {
		ectx["output"] = abbreviate(string(out))
		return nil, errors.WrapWithContext(errors.ErrCodeBacktraceCaptureFailed, "debugger failed",
			toolError(ctx, err), ectx)
	}

	return out, nil
}

// toolError prefers the context's error when the tool was killed for it.
func toolError(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w (%v)", cerr, err)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && len(ee.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(abbreviate(string(ee.Stderr))))
	}
	return err
}
