// Package errors provides structured error types for the collection run.
//
// Codes mirror the run's failure taxonomy: configuration and time-parse
// failures abort before any archive work, file system failures abort the run,
// per-dump analysis failures are recovered by the caller, and a size-limit
// failure discards the archive.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeExecutableNameUnresolved,
//	    "file output has no execfn marker",
//	    cause,
//	    map[string]any{
//	        "dump": dumpPath,
//	    },
//	)
package errors
