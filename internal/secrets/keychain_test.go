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
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

const (
	statusAuthFailed      Status = -25293
	statusNoDefaultChain  Status = -25307
	statusInteractionDeny Status = -25308
)

type fakeItem struct {
	service, account string
}

type fakeData struct {
	b []byte
}

// fakeKeychain emulates the generic-password API in memory and counts
// handles that were handed out but not yet released.
type fakeKeychain struct {
	mu          sync.Mutex
	items       map[fakeItem][]byte
	outstanding int
	finds       int

	findStatus   Status
	addStatus    Status
	modifyStatus Status
	deleteStatus Status
}

func newFakeKeychain() *fakeKeychain {
	return &fakeKeychain{items: make(map[fakeItem][]byte)}
}

func (f *fakeKeychain) Find(service, account []byte, wantData, wantItem bool) (handle, handle, int, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finds++
	if f.findStatus != StatusSuccess {
		return nil, nil, 0, f.findStatus
	}

	key := fakeItem{string(service), string(account)}
	payload, ok := f.items[key]
	if !ok {
		return nil, nil, 0, StatusItemNotFound
	}

	var item, data handle
	if wantItem {
		item = &key
		f.outstanding++
	}
	if wantData {
		data = &fakeData{b: bytes.Clone(payload)}
		f.outstanding++
	}
	return item, data, len(payload), StatusSuccess
}

func (f *fakeKeychain) CopyBytes(data handle, n int) []byte {
	return bytes.Clone(data.(*fakeData).b[:n])
}

func (f *fakeKeychain) FreeContent(data handle) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(data.(*fakeData).b)
	f.outstanding--
	return StatusSuccess
}

func (f *fakeKeychain) Add(service, account, payload []byte) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addStatus != StatusSuccess {
		return f.addStatus
	}
	f.items[fakeItem{string(service), string(account)}] = bytes.Clone(payload)
	return StatusSuccess
}

func (f *fakeKeychain) Modify(item handle, payload []byte) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modifyStatus != StatusSuccess {
		return f.modifyStatus
	}
	f.items[*item.(*fakeItem)] = bytes.Clone(payload)
	return StatusSuccess
}

func (f *fakeKeychain) Delete(item handle) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteStatus != StatusSuccess {
		return f.deleteStatus
	}
	delete(f.items, *item.(*fakeItem))
	return StatusSuccess
}

func (f *fakeKeychain) Release(item handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outstanding--
}

func (f *fakeKeychain) StatusMessage(st Status) string {
	return fmt.Sprintf("fake status %d", st)
}

func (f *fakeKeychain) handles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outstanding
}

func TestKeychainStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	api := newFakeKeychain()
	store := newKeychainStore(api, "alice", nil)

	require.True(t, store.Available())
	assert.Equal(t, "keychain", store.Name())

	// Absent
	payload, found, err := store.Get(ctx, "db/password")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, payload)

	has, err := store.Has(ctx, "db/password")
	require.NoError(t, err)
	assert.False(t, has)

	// Add
	require.NoError(t, store.Set(ctx, "db/password", []byte("hunter2")))
	assert.Equal(t, []byte("hunter2"), api.items[fakeItem{"db/password", "alice"}])

	// Modify
	require.NoError(t, store.Set(ctx, "db/password", []byte("correct horse")))
	assert.Len(t, api.items, 1)

	payload, found, err = store.Get(ctx, "db/password")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("correct horse"), payload)

	has, err = store.Has(ctx, "db/password")
	require.NoError(t, err)
	assert.True(t, has)

	// Delete, twice
	require.NoError(t, store.Delete(ctx, "db/password"))
	require.NoError(t, store.Delete(ctx, "db/password"))
	assert.Empty(t, api.items)

	assert.Zero(t, api.handles(), "every handle must be released")
}

func TestKeychainStore_EmptyPayload(t *testing.T) {
	ctx := context.Background()
	api := newFakeKeychain()
	store := newKeychainStore(api, "alice", nil)

	require.NoError(t, store.Set(ctx, "empty", []byte{}))
	payload, found, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, payload)
	assert.Zero(t, api.handles())
}

func TestKeychainStore_AccountScoping(t *testing.T) {
	ctx := context.Background()
	api := newFakeKeychain()
	alice := newKeychainStore(api, "alice", nil)
	bob := newKeychainStore(api, "bob", nil)

	require.NoError(t, alice.Set(ctx, "token", []byte("a")))

	_, found, err := bob.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeychainStore_StatusMapping(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(api *fakeKeychain)
		run    func(s *KeychainStore) error
		wantOp string
		want   Status
	}{
		{
			name:   "find failure on get",
			setup:  func(api *fakeKeychain) { api.findStatus = statusAuthFailed },
			run:    func(s *KeychainStore) error { _, _, err := s.Get(ctx, "x"); return err },
			wantOp: "get",
			want:   statusAuthFailed,
		},
		{
			name:   "find failure on has",
			setup:  func(api *fakeKeychain) { api.findStatus = statusInteractionDeny },
			run:    func(s *KeychainStore) error { _, err := s.Has(ctx, "x"); return err },
			wantOp: "has",
			want:   statusInteractionDeny,
		},
		{
			name:   "add failure",
			setup:  func(api *fakeKeychain) { api.addStatus = statusAuthFailed },
			run:    func(s *KeychainStore) error { return s.Set(ctx, "new", []byte("v")) },
			wantOp: "set",
			want:   statusAuthFailed,
		},
		{
			name:   "modify failure",
			setup:  func(api *fakeKeychain) { api.modifyStatus = statusAuthFailed },
			run:    func(s *KeychainStore) error { return s.Set(ctx, "existing", []byte("v2")) },
			wantOp: "set",
			want:   statusAuthFailed,
		},
		{
			name:   "delete failure",
			setup:  func(api *fakeKeychain) { api.deleteStatus = statusInteractionDeny },
			run:    func(s *KeychainStore) error { return s.Delete(ctx, "existing") },
			wantOp: "delete",
			want:   statusInteractionDeny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeKeychain()
			api.items[fakeItem{"existing", "alice"}] = []byte("v1")
			store := newKeychainStore(api, "alice", nil)
			tt.setup(api)

			err := tt.run(store)
			require.Error(t, err)

			var ioErr *kserrors.IOError
			require.ErrorAs(t, err, &ioErr)
			assert.Equal(t, "keychain", ioErr.Backend)
			assert.Equal(t, tt.wantOp, ioErr.Op)
			assert.Equal(t, int(tt.want), ioErr.Code)
			assert.Equal(t, fmt.Sprintf("fake status %d", tt.want), ioErr.Message)

			assert.Zero(t, api.handles(), "handles leaked on failure path")
		})
	}
}

func TestKeychainStore_Availability(t *testing.T) {
	t.Run("no native api", func(t *testing.T) {
		store := newKeychainStore(nil, "alice", nil)
		assert.False(t, store.Available())

		_, _, err := store.Get(context.Background(), "x")
		assert.True(t, kserrors.IsIO(err))
	})

	t.Run("no default keychain", func(t *testing.T) {
		api := newFakeKeychain()
		api.findStatus = statusNoDefaultChain
		store := newKeychainStore(api, "alice", nil)
		assert.False(t, store.Available())
	})

	t.Run("probe runs once", func(t *testing.T) {
		api := newFakeKeychain()
		store := newKeychainStore(api, "alice", nil)

		for i := 0; i < 5; i++ {
			assert.True(t, store.Available())
		}
		assert.Equal(t, 1, api.finds)

		// A later failure does not change the answer.
		api.findStatus = statusNoDefaultChain
		assert.True(t, store.Available())
		assert.Empty(t, api.items, "probe must not write")
	})
}

func TestKeychainStore_CanceledContext(t *testing.T) {
	api := newFakeKeychain()
	store := newKeychainStore(api, "alice", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Set(ctx, "x", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, api.finds)
}
