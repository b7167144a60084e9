// Package matcher expands source rules into concrete files.
//
// Each rule's pattern is expanded under its directory with shell glob
// semantics (filepath.Glob): no recursion beyond what the pattern itself
// spells out, and only regular files are returned. Files are filtered on the
// file system change time, which is the closest portable stand-in for a
// creation time on Unix file systems.
package matcher
