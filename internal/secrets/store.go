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
	"errors"
	"time"
)

// ErrNoBackend is returned when no candidate backend is available. It is
// fatal for the caller: nothing can be stored or fetched.
var ErrNoBackend = errors.New("no secret store backend available")

// Store provides named secret storage. Implementations must be safe for
// concurrent use.
//
// A missing secret is a result, not an error: Get returns (nil, false, nil)
// and Delete of a missing id returns nil.
type Store interface {
	// Name returns the backend identifier (e.g., "keychain", "keyring", "file").
	Name() string

	// Available reports whether the backend is usable in this environment.
	// It has no side effects and returns the same answer on every call.
	Available() bool

	// Has reports whether a secret exists for id.
	Has(ctx context.Context, id string) (bool, error)

	// Get returns the payload stored for id.
	Get(ctx context.Context, id string) ([]byte, bool, error)

	// Set creates or replaces the payload for id.
	Set(ctx context.Context, id string, payload []byte) error

	// Delete removes the secret for id.
	Delete(ctx context.Context, id string) error
}

// SecretChange represents a change notification for watchable backends.
type SecretChange struct {
	ID        string
	Timestamp time.Time
	Deleted   bool
}

// Watcher is implemented by backends that can report changes to a secret.
type Watcher interface {
	// Watch returns a channel that receives a notification whenever id is
	// written or removed. The channel is closed when ctx is canceled or the
	// watch fails.
	Watch(ctx context.Context, id string) (<-chan SecretChange, error)
}

// Migrator is implemented by backends that can re-encode stored secrets
// with the current coder.
type Migrator interface {
	// Migrate re-encodes every secret not written by the current coder and
	// returns how many were rewritten.
	Migrate(ctx context.Context) (int, error)
}
