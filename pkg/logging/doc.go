// Package logging configures log/slog for logbundle.
//
// All records are JSON on stderr so that the run summary printed to stdout
// stays machine readable. Every record carries the module and version
// attributes, and debug level adds source locations.
//
// Set the default logger once in the command's Before hook:
//
//	logging.SetDefaultStructuredLoggerWithLevel("logbundle", version, cmd.String("log-level"))
//
// When no level is given the LOG_LEVEL environment variable is used:
//
//	LOG_LEVEL=debug logbundle collect --config config.json
//
// Supported levels are debug, info (default), warn/warning and error.
//
// A run attaches its logger to the context with WithLogger; pipeline stages
// log through FromContext(ctx) so their records carry the run's attributes.
package logging
