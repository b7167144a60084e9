/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

// Package checksum computes SHA256 digests for archive entries.
//
// When enabled, the archive builder hashes each entry while streaming it into
// the archive and appends a checksums.txt entry:
//
//	h := checksum.NewHasher("a.log")
//	io.Copy(h.Writer(entryWriter), file)
//	sums = append(sums, h.Sum())
//	data := checksum.Format(sums)
//
// The file format is compatible with sha256sum:
//
//	unzip aumtech.050123hhmi.zip && sha256sum -c checksums.txt
package checksum
