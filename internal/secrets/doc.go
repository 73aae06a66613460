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

/*
Package secrets provides secure storage of named secrets.

Callers use a Facade. It picks one backend for the life of the process and
routes every operation to it:

	keychain - macOS Keychain through the Security framework (darwin, cgo)
	keyring  - platform credential store through go-keyring
	file     - local blobs under authenticated encryption (always available)

Backends are probed in the configured order and the first available one is
used. Each implements Store:

	type Store interface {
	    Name() string
	    Available() bool
	    Has(ctx context.Context, id string) (bool, error)
	    Get(ctx context.Context, id string) ([]byte, bool, error)
	    Set(ctx context.Context, id string, payload []byte) error
	    Delete(ctx context.Context, id string) error
	}

# Usage

	cfg, err := config.Load("")
	if err != nil {
	    return err
	}
	store, err := secrets.Open(cfg, logger)
	if err != nil {
	    return err
	}
	defer store.Close()

	if err := store.Set(ctx, "db/password", []byte("hunter2")); err != nil {
	    return err
	}
	payload, found, err := store.Get(ctx, "db/password")

A missing secret is not an error: Get returns found == false and Delete
succeeds.

# Errors

Native and storage failures are *errors.IOError and carry the native status
code when there is one. A stored blob that fails verification, names an
unknown coder or has unusable key material is an *errors.SecurityError.
Invalid ids are *errors.ValidationError. If no backend is available every
operation returns ErrNoBackend.

# Fallback Store

The file backend writes one blob per secret, named by a hash of the account
and id, using the coder wire format from pkg/coder. Keys live in keys.yaml
next to the blobs, one per coder variant, optionally sealed under a
passphrase (KEYSTASH_MASTER_KEY). Migrate re-encodes old blobs with the
current coder. Blobs are kept in files (default) or a SQLite database.
*/
package secrets
