// Copyright 2025 Tom Barlow
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

// Package random is the only source of key, nonce and salt material in keystash.
//
// The generator is the operating system CSPRNG behind crypto/rand. It is safe
// for concurrent use, so one process-wide instance replaces a per-thread cache.
// It is verified on first use; an unusable generator is an environment defect
// and panics instead of surfacing as a per-call error.
package random

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

var (
	source   io.Reader = rand.Reader
	verified sync.Once
)

// Reader returns the verified process generator.
func Reader() io.Reader {
	verified.Do(verify)
	return source
}

// Read fills b with random bytes.
func Read(b []byte) {
	if _, err := io.ReadFull(Reader(), b); err != nil {
		panic(fmt.Sprintf("random: strong generator failed: %v", err))
	}
}

// Bytes returns n fresh random bytes.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Read(b)
	return b
}

func verify() {
	var probe [16]byte
	if _, err := io.ReadFull(source, probe[:]); err != nil {
		panic(fmt.Sprintf("random: no strong generator available: %v", err))
	}
}
