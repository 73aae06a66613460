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
	"golang.org/x/crypto/chacha20poly1305"
)

// newChaChaFactory returns the ChaCha20-Poly1305 factory (96-bit nonce).
func newChaChaFactory() Factory {
	return &aeadFactory{
		id:      ChaCha20Poly1305,
		keySize: chacha20poly1305.KeySize,
		newAEAD: chacha20poly1305.New,
	}
}
