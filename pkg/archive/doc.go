// Package archive builds the output zip.
//
// Entry names are flat: callers pass a base name (or a source-qualified name)
// and directory structure of the inputs is not preserved. Writing a name a
// second time replaces the earlier content, so every name is unique in the
// finished archive.
//
// The zip is written to a hidden temporary file in the destination directory
// and renamed into place only after it is complete and within the size
// limit. A size failure removes the temporary file, so a reader never sees an
// oversized or partial archive at the destination.
package archive
