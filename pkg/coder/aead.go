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
	"bytes"
	"crypto/cipher"
	"fmt"

	kserrors "github.com/tombee/keystash/pkg/errors"
	"github.com/tombee/keystash/pkg/random"
)

// aeadFactory builds coders for one AEAD construction and key size.
type aeadFactory struct {
	id      ID
	keySize int
	newAEAD func(key []byte) (cipher.AEAD, error)
}

// NewCoder draws exactly keySize bytes from the randomness source.
func (f *aeadFactory) NewCoder() (Coder, error) {
	key := random.Bytes(f.keySize)
	defer clear(key)
	return f.LoadCoder(key, 0, len(key))
}

// LoadCoder copies key[off:off+n]; the caller keeps ownership of key.
func (f *aeadFactory) LoadCoder(key []byte, off, n int) (Coder, error) {
	if off < 0 || n < 0 || off > len(key) || n > len(key)-off {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, f.id.String(),
			fmt.Sprintf("key range [%d:%d] outside %d bytes", off, off+n, len(key)), nil)
	}
	if n != f.keySize {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, f.id.String(),
			fmt.Sprintf("got %d key bytes, want %d", n, f.keySize), nil)
	}

	material := bytes.Clone(key[off : off+n])
	aead, err := f.newAEAD(material)
	if err != nil {
		clear(material)
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, f.id.String(), "cipher rejected key", err)
	}

	return &aeadCoder{id: f.id, key: material, aead: aead}, nil
}

type aeadCoder struct {
	id   ID
	key  []byte
	aead cipher.AEAD
}

func (c *aeadCoder) ID() ID { return c.id }

func (c *aeadCoder) Key() []byte { return bytes.Clone(c.key) }

// Encode lays out ID || nonce || ciphertext || tag. The ID byte is bound in
// as additional data.
func (c *aeadCoder) Encode(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	blob := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	blob[0] = byte(c.id)
	random.Read(blob[1:])

	nonce := blob[1:]
	return c.aead.Seal(blob, nonce, plaintext, []byte{byte(c.id)}), nil
}

func (c *aeadCoder) Decode(blob []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) < 1+nonceSize+c.aead.Overhead() {
		return nil, kserrors.NewSecurityError(kserrors.ErrIntegrity, c.id.String(),
			fmt.Sprintf("blob of %d bytes is truncated", len(blob)), nil)
	}
	if ID(blob[0]) != c.id {
		return nil, kserrors.NewSecurityError(kserrors.ErrIntegrity, c.id.String(),
			fmt.Sprintf("blob tagged %s", ID(blob[0])), nil)
	}

	nonce := blob[1 : 1+nonceSize]
	plaintext, err := c.aead.Open(nil, nonce, blob[1+nonceSize:], blob[:1])
	if err != nil {
		return nil, kserrors.NewSecurityError(kserrors.ErrIntegrity, c.id.String(), "authentication failed", err)
	}
	return plaintext, nil
}
