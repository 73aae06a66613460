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

// Package coder implements the storable coder protocol: self-describing,
// versioned authenticated encryption for secrets at rest.
//
// Every blob starts with a one byte coder ID followed by the coder payload:
//
//	ID (1 byte) || nonce || ciphertext || tag
//
// IDs are never reused. New algorithms get new IDs, and every historical
// coder stays registered so old blobs remain decodable. The protocol does not
// persist keys; callers keep the material returned by Coder.Key.
package coder

import (
	"fmt"
	"strings"
)

// ID identifies a coder variant. Values are fixed forever once assigned.
type ID uint8

const (
	// AES128 is AES-GCM with a 128-bit key.
	AES128 ID = 1
	// AES256 is AES-GCM with a 256-bit key.
	AES256 ID = 2
	// ChaCha20Poly1305 is ChaCha20-Poly1305 with a 256-bit key.
	ChaCha20Poly1305 ID = 3
)

// Default is the coder used for new writes unless configured otherwise.
const Default = AES256

var idNames = map[ID]string{
	AES128:           "aes-128",
	AES256:           "aes-256",
	ChaCha20Poly1305: "chacha20-poly1305",
}

// String returns the configuration name of the coder.
func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("coder(0x%02x)", uint8(id))
}

// ParseID resolves a configuration name such as "aes-256".
func ParseID(name string) (ID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, n := range idNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown coder %q", name)
}

// Coder encodes and decodes secrets with one key of one variant.
// Instances are short lived: created for an operation and then discarded.
type Coder interface {
	// ID returns the variant tag written in front of every blob.
	ID() ID

	// Key returns a copy of the key material. Callers must keep it to
	// decode the blobs this coder produced.
	Key() []byte

	// Encode encrypts plaintext with a fresh nonce and returns the full blob.
	Encode(plaintext []byte) ([]byte, error)

	// Decode verifies and decrypts a blob produced by the same variant and key.
	Decode(blob []byte) ([]byte, error)
}

// Factory builds coders of one variant.
type Factory interface {
	// NewCoder returns a coder with freshly generated key material.
	NewCoder() (Coder, error)

	// LoadCoder reconstructs a coder from key[off:off+n].
	LoadCoder(key []byte, off, n int) (Coder, error)
}

// KeyFunc supplies the key material for a coder variant during decode.
// Decode wipes the returned slice, so implementations must return a copy.
type KeyFunc func(id ID) ([]byte, error)
