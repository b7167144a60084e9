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

package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// ChecksumFileName is the archive entry holding the checksums.
const ChecksumFileName = "checksums.txt"

// Sum is the SHA256 digest of one archive entry.
type Sum struct {
	Name   string `json:"name" yaml:"name"`
	Digest string `json:"sha256" yaml:"sha256"`
}

// Hasher tees entry content into a running SHA256.
type Hasher struct {
	name string
	h    hash.Hash
}

// NewHasher starts a digest for the named entry.
func NewHasher(name string) *Hasher {
	return &Hasher{name: name, h: sha256.New()}
}

// Writer wraps w so everything written to it is also hashed.
func (h *Hasher) Writer(w io.Writer) io.Writer {
	return io.MultiWriter(w, h.h)
}

// Sum returns the finished digest.
func (h *Hasher) Sum() Sum {
	return Sum{Name: h.name, Digest: hex.EncodeToString(h.h.Sum(nil))}
}

// Of returns the digest of an in-memory entry.
func Of(name string, data []byte) Sum {
	d := sha256.Sum256(data)
	return Sum{Name: name, Digest: hex.EncodeToString(d[:])}
}

// Format renders sums in sha256sum(1) format, one "<digest>  <name>" per line.
// The result verifies with "sha256sum -c checksums.txt" after extraction.
func Format(sums []Sum) []byte {
	var b strings.Builder
	for _, s := range sums {
		fmt.Fprintf(&b, "%s  %s\n", s.Digest, s.Name)
	}
	return []byte(b.String())
}
