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
	"log/slog"
	"sync"

	"github.com/tombee/keystash/internal/log"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// Status is a Security framework result code (OSStatus).
type Status int32

const (
	// StatusSuccess is errSecSuccess.
	StatusSuccess Status = 0
	// StatusItemNotFound is errSecItemNotFound. It means "absent", not failure.
	StatusItemNotFound Status = -25300
)

// keychainProbeID is looked up once to decide availability.
const keychainProbeID = reservedIDPrefix + "availability_probe__"

// handle is an opaque native reference returned by keychainAPI. Every
// non-nil handle must be given back exactly once (Release for items,
// FreeContent for password data).
type handle any

// keychainAPI is the boundary to the native generic-password functions.
// Services and accounts are raw UTF-8 bytes.
type keychainAPI interface {
	// Find looks up the generic password for service and account. When
	// wantItem is set, a found item reference is returned in item. When
	// wantData is set, the password bytes are returned in data with length n.
	// On any status other than StatusSuccess both handles are nil.
	Find(service, account []byte, wantData, wantItem bool) (item, data handle, n int, st Status)

	// CopyBytes copies n bytes out of a data handle.
	CopyBytes(data handle, n int) []byte

	// FreeContent releases a data handle returned by Find.
	FreeContent(data handle) Status

	// Add creates a new generic password item.
	Add(service, account, payload []byte) Status

	// Modify replaces the password of an existing item.
	Modify(item handle, payload []byte) Status

	// Delete removes an existing item from its keychain.
	Delete(item handle) Status

	// Release releases an item handle returned by Find.
	Release(item handle)

	// StatusMessage returns the human-readable text for a status code.
	StatusMessage(st Status) string
}

// KeychainStore stores secrets as macOS Keychain generic passwords.
// The service name is the secret id and the account name is the account
// context. On platforms without the Security framework it is never
// available.
type KeychainStore struct {
	api     keychainAPI
	account []byte
	logger  *slog.Logger

	probe     sync.Once
	available bool
}

// NewKeychainStore creates a keychain backend for account using the system
// Security framework when this build has it.
func NewKeychainStore(account string, logger *slog.Logger) *KeychainStore {
	return newKeychainStore(systemKeychain(), account, logger)
}

func newKeychainStore(api keychainAPI, account string, logger *slog.Logger) *KeychainStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &KeychainStore{
		api:     api,
		account: []byte(account),
		logger:  log.WithBackend(logger, "keychain"),
	}
}

// Name returns the backend identifier.
func (k *KeychainStore) Name() string {
	return "keychain"
}

// Available reports whether the Security framework is present and a
// default keychain answers lookups. The probe runs once.
func (k *KeychainStore) Available() bool {
	k.probe.Do(func() {
		if k.api == nil {
			return
		}
		item, data, _, st := k.api.Find([]byte(keychainProbeID), k.account, false, false)
		k.release(item, data)
		switch st {
		case StatusSuccess, StatusItemNotFound:
			k.available = true
		default:
			k.logger.Debug("keychain probe failed",
				slog.Int("status", int(st)),
				slog.String("message", k.api.StatusMessage(st)))
		}
	})
	return k.available
}

// Has reports whether a generic password exists for id.
func (k *KeychainStore) Has(ctx context.Context, id string) (bool, error) {
	if err := k.ready(ctx, "has"); err != nil {
		return false, err
	}

	item, data, _, st := k.api.Find([]byte(id), k.account, false, false)
	defer k.release(item, data)

	switch st {
	case StatusSuccess:
		return true, nil
	case StatusItemNotFound:
		return false, nil
	default:
		return false, k.statusError("has", st)
	}
}

// Get returns the password bytes stored for id.
func (k *KeychainStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := k.ready(ctx, "get"); err != nil {
		return nil, false, err
	}

	item, data, n, st := k.api.Find([]byte(id), k.account, true, false)
	defer k.release(item, data)

	switch st {
	case StatusSuccess:
		return k.api.CopyBytes(data, n), true, nil
	case StatusItemNotFound:
		return nil, false, nil
	default:
		return nil, false, k.statusError("get", st)
	}
}

// Set modifies the existing item for id, or adds one.
func (k *KeychainStore) Set(ctx context.Context, id string, payload []byte) error {
	if err := k.ready(ctx, "set"); err != nil {
		return err
	}

	service := []byte(id)
	item, data, _, st := k.api.Find(service, k.account, false, true)
	defer k.release(item, data)

	switch st {
	case StatusSuccess:
		st = k.api.Modify(item, payload)
	case StatusItemNotFound:
		st = k.api.Add(service, k.account, payload)
	}
	if st != StatusSuccess {
		return k.statusError("set", st)
	}
	return nil
}

// Delete removes the item for id. A missing item is not an error.
func (k *KeychainStore) Delete(ctx context.Context, id string) error {
	if err := k.ready(ctx, "delete"); err != nil {
		return err
	}

	item, data, _, st := k.api.Find([]byte(id), k.account, false, true)
	defer k.release(item, data)

	switch st {
	case StatusSuccess:
		st = k.api.Delete(item)
	case StatusItemNotFound:
		return nil
	}
	if st != StatusSuccess {
		return k.statusError("delete", st)
	}
	return nil
}

func (k *KeychainStore) ready(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if k.api == nil {
		return &kserrors.IOError{Backend: "keychain", Op: op, Message: "keychain is not supported on this platform"}
	}
	return nil
}

// release hands back whatever Find returned.
func (k *KeychainStore) release(item, data handle) {
	if data != nil {
		if st := k.api.FreeContent(data); st != StatusSuccess {
			k.logger.Warn("failed to free keychain content", slog.Int("status", int(st)))
		}
	}
	if item != nil {
		k.api.Release(item)
	}
}

func (k *KeychainStore) statusError(op string, st Status) error {
	return &kserrors.IOError{
		Backend: "keychain",
		Op:      op,
		Code:    int(st),
		Message: k.api.StatusMessage(st),
	}
}
