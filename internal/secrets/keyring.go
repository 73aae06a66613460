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

package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/tombee/keystash/internal/log"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// keyringProbeID is read once to detect a locked or missing keyring service.
const keyringProbeID = reservedIDPrefix + "availability_test__"

// KeyringStore provides secure storage using the platform credential store
// through go-keyring.
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
//
// The keyring API stores strings, so payloads are base64-encoded.
type KeyringStore struct {
	user   string
	logger *slog.Logger

	probe     sync.Once
	available bool
}

// NewKeyringStore creates a keyring backend for account.
func NewKeyringStore(account string, logger *slog.Logger) *KeyringStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &KeyringStore{
		user:   account,
		logger: log.WithBackend(logger, "keyring"),
	}
}

// Name returns the backend identifier.
func (k *KeyringStore) Name() string {
	return "keyring"
}

// Available returns true if the keyring service is accessible.
func (k *KeyringStore) Available() bool {
	k.probe.Do(func() {
		// Getting a key that never exists detects locked keyrings and
		// missing services without writing anything.
		_, err := keyring.Get(keyringProbeID, k.user)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			k.logger.Debug("keyring probe failed", log.Error(err))
			return
		}
		k.available = true
	})
	return k.available
}

// Has reports whether a secret exists for id.
func (k *KeyringStore) Has(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := keyring.Get(id, k.user)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return false, nil
	default:
		return false, k.ioError("has", err)
	}
}

// Get retrieves a secret from the keyring.
func (k *KeyringStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	encoded, err := keyring.Get(id, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, k.ioError("get", err)
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, kserrors.NewSecurityError(kserrors.ErrIntegrity, "", "keyring entry is not valid base64", err)
	}
	return payload, true, nil
}

// Set stores a secret in the keyring, replacing any existing value.
func (k *KeyringStore) Set(ctx context.Context, id string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Set(id, k.user, base64.StdEncoding.EncodeToString(payload)); err != nil {
		return k.ioError("set", err)
	}
	return nil
}

// Delete removes a secret from the keyring. A missing secret is not an error.
func (k *KeyringStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Delete(id, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return k.ioError("delete", err)
	}
	return nil
}

func (k *KeyringStore) ioError(op string, err error) error {
	return &kserrors.IOError{Backend: "keyring", Op: op, Cause: err}
}
