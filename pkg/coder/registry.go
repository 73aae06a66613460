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
	"fmt"
	"slices"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

// factories is the closed registry. There is no runtime registration: a tag
// that is not listed here can never be decoded.
var factories = map[ID]Factory{
	AES128:           newAESFactory(AES128, aes128KeySize),
	AES256:           newAESFactory(AES256, aes256KeySize),
	ChaCha20Poly1305: newChaChaFactory(),
}

// Lookup returns the factory for id.
func Lookup(id ID) (Factory, error) {
	f, ok := factories[id]
	if !ok {
		return nil, kserrors.NewSecurityError(kserrors.ErrUnknownCoder, "",
			fmt.Sprintf("tag 0x%02x is not registered", uint8(id)), nil)
	}
	return f, nil
}

// IDs lists the registered coder variants in ascending order.
func IDs() []ID {
	ids := make([]ID, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// New mints a coder of the given variant with fresh key material.
func New(id ID) (Coder, error) {
	f, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	return f.NewCoder()
}

// Load reconstructs a coder of the given variant from key[off:off+n].
func Load(id ID, key []byte, off, n int) (Coder, error) {
	f, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	return f.LoadCoder(key, off, n)
}

// Tag reads the coder ID of a blob without checking registration.
func Tag(blob []byte) (ID, error) {
	if len(blob) == 0 {
		return 0, kserrors.NewSecurityError(kserrors.ErrIntegrity, "", "empty blob", nil)
	}
	return ID(blob[0]), nil
}

// Decode reads the blob tag, resolves the registered variant, loads it with
// the key returned by keys and verifies and decrypts the payload.
func Decode(blob []byte, keys KeyFunc) ([]byte, error) {
	id, err := Tag(blob)
	if err != nil {
		return nil, err
	}

	f, err := Lookup(id)
	if err != nil {
		return nil, err
	}

	key, err := keys(id)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	c, err := f.LoadCoder(key, 0, len(key))
	if err != nil {
		return nil, err
	}
	return c.Decode(blob)
}

// Encode encrypts plaintext with variant id under key.
func Encode(id ID, key, plaintext []byte) ([]byte, error) {
	c, err := Load(id, key, 0, len(key))
	if err != nil {
		return nil, err
	}
	return c.Encode(plaintext)
}
