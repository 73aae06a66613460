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

package coder

import (
	"crypto/aes"
	"crypto/cipher"
)

const (
	// gcmNonceSize is the standard 96-bit GCM nonce.
	gcmNonceSize = 12

	aes128KeySize = 16
	aes256KeySize = 32
)

// newAESFactory returns the AES-GCM factory for one key size.
func newAESFactory(id ID, keySize int) Factory {
	return &aeadFactory{id: id, keySize: keySize, newAEAD: newGCM}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, gcmNonceSize)
}
