// Package cli implements the logbundle command line.
//
// # Overview
//
// logbundle gathers the log files and core dumps a support engineer needs
// from one time window into a single zip archive. Sources come from a
// catalog file; the window comes from flags or is prompted for.
//
// # Commands
//
// The root command runs a collection:
//
//	logbundle [--config config.json] [--start-date mm/dd/yyyy --start-time hh:mm
//	          --end-date mm/dd/yyyy --end-time hh:mm] [--output-dir DIR]
//
// On success it prints a summary followed by "Logs Zipped Successfully".
// When the archive would exceed --size-limit (1 GiB by default) nothing is
// written and the command fails.
//
// sources - List catalog rules:
//
//	logbundle sources [--config FILE] [--format table|json|yaml]
//
// # Environment
//
// Every flag can also be set through a LOGBUNDLE_ variable, for example
// LOGBUNDLE_OUTPUT_DIR or LOGBUNDLE_TOOL_TIMEOUT. LOG_LEVEL sets the log
// level when --log-level is not given.
//
// # Exit Status
//
// 0 when the archive was written, 1 otherwise. Core dumps that could not be
// analysed are reported as warnings and do not change the exit status.
package cli
