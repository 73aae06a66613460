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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

func TestKeyringStore_Lifecycle(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := NewKeyringStore("alice", nil)

	assert.Equal(t, "keyring", store.Name())
	require.True(t, store.Available())

	_, found, err := store.Get(ctx, "api/token")
	require.NoError(t, err)
	assert.False(t, found)

	binary := []byte{0x00, 0xff, 0x10, 'x', 0x00}
	require.NoError(t, store.Set(ctx, "api/token", binary))

	payload, found, err := store.Get(ctx, "api/token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, binary, payload)

	has, err := store.Has(ctx, "api/token")
	require.NoError(t, err)
	assert.True(t, has)

	// Stored as base64 under service=id, user=account.
	raw, err := keyring.Get("api/token", "alice")
	require.NoError(t, err)
	assert.Equal(t, "AP8QeAA=", raw)

	require.NoError(t, store.Set(ctx, "api/token", []byte("v2")))
	payload, _, err = store.Get(ctx, "api/token")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), payload)

	require.NoError(t, store.Delete(ctx, "api/token"))
	require.NoError(t, store.Delete(ctx, "api/token"), "deleting a missing secret succeeds")

	has, err = store.Has(ctx, "api/token")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestKeyringStore_Unavailable(t *testing.T) {
	boom := errors.New("dbus: secret service not running")
	keyring.MockInitWithError(boom)
	t.Cleanup(keyring.MockInit)

	store := NewKeyringStore("alice", nil)
	assert.False(t, store.Available())
	assert.False(t, store.Available())

	_, _, err := store.Get(context.Background(), "x")
	var ioErr *kserrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "keyring", ioErr.Backend)
	assert.Equal(t, "get", ioErr.Op)
	assert.ErrorIs(t, err, boom)
}

func TestKeyringStore_CorruptEntry(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("bad", "alice", "not base64!"))

	_, _, err := NewKeyringStore("alice", nil).Get(context.Background(), "bad")
	assert.ErrorIs(t, err, kserrors.ErrIntegrity)
}
