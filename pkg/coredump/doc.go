// Package coredump turns core dumps into backtrace reports.
//
// A source rule whose filename is "core" marks its directory as a dump
// location. Every core.* file found there is analysed once: file(1) names
// the crashed program, gdb prints a full backtrace, and the output is written
// to <dump>.log, embedded into the archive and removed.
//
// The external tools sit behind the Inspector interface. ExecInspector is the
// production implementation. Each invocation gets its own timeout so a hung
// debugger costs one dump, not the run.
//
// Failures coded EXECUTABLE_NAME_UNRESOLVED or BACKTRACE_CAPTURE_FAILED are
// local to a dump; callers record them and move on (see IsDumpFailure).
package coredump
