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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/keystash/pkg/coder"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

func newTestFileStore(t *testing.T, driver string, id coder.ID) *FileStore {
	t.Helper()
	store, err := NewFileStore(FileStoreConfig{
		Dir:     filepath.Join(t.TempDir(), "store"),
		Driver:  driver,
		Account: "alice",
		Coder:   id,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// readBlob fetches the raw stored blob for id.
func readBlob(t *testing.T, s *FileStore, id string) []byte {
	t.Helper()
	blob, ok, err := s.blobs.Read(context.Background(), s.ref(id))
	require.NoError(t, err)
	require.True(t, ok)
	return blob
}

func writeBlob(t *testing.T, s *FileStore, id string, blob []byte) {
	t.Helper()
	require.NoError(t, s.blobs.Write(context.Background(), s.ref(id), blob))
}

func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, driver := range []string{DriverDir, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			fn(t, driver)
		})
	}
}

func TestFileStore_Lifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		store := newTestFileStore(t, driver, coder.AES256)

		assert.Equal(t, "file", store.Name())
		assert.True(t, store.Available())

		payload, found, err := store.Get(ctx, "db/password")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, payload)

		require.NoError(t, store.Set(ctx, "db/password", []byte("v1")))
		require.NoError(t, store.Set(ctx, "db/password", []byte("v2")))

		payload, found, err = store.Get(ctx, "db/password")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("v2"), payload)

		has, err := store.Has(ctx, "db/password")
		require.NoError(t, err)
		assert.True(t, has)

		require.NoError(t, store.Delete(ctx, "db/password"))
		require.NoError(t, store.Delete(ctx, "db/password"))

		has, err = store.Has(ctx, "db/password")
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestFileStore_EveryCoderRoundTrips(t *testing.T) {
	for _, id := range coder.IDs() {
		t.Run(id.String(), func(t *testing.T) {
			ctx := context.Background()
			store := newTestFileStore(t, DriverDir, id)

			payload := bytes.Repeat([]byte{0x00, 0x7f, 0xff}, 100)
			require.NoError(t, store.Set(ctx, "blob", payload))
			assert.Equal(t, byte(id), readBlob(t, store, "blob")[0])

			got, found, err := store.Get(ctx, "blob")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, payload, got)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		dir := t.TempDir()
		cfg := FileStoreConfig{Dir: dir, Driver: driver, Account: "alice"}

		first, err := NewFileStore(cfg)
		require.NoError(t, err)
		require.NoError(t, first.Set(ctx, "token", []byte("persisted")))
		require.NoError(t, first.Close())

		second, err := NewFileStore(cfg)
		require.NoError(t, err)
		defer second.Close()

		got, found, err := second.Get(ctx, "token")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("persisted"), got)
	})
}

func TestFileStore_TamperedBlobIsSecurityError(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		store := newTestFileStore(t, driver, coder.AES128)
		require.NoError(t, store.Set(ctx, "x", []byte("secret")))

		blob := readBlob(t, store, "x")
		blob[len(blob)-1] ^= 0x01
		writeBlob(t, store, "x", blob)

		payload, found, err := store.Get(ctx, "x")
		require.Error(t, err)
		assert.True(t, kserrors.IsSecurity(err))
		assert.ErrorIs(t, err, kserrors.ErrIntegrity)
		assert.False(t, found)
		assert.Nil(t, payload)
	})
}

func TestFileStore_UnknownTag(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t, DriverDir, coder.AES256)
	require.NoError(t, store.Set(ctx, "x", []byte("secret")))

	blob := readBlob(t, store, "x")
	blob[0] = 0x7f
	writeBlob(t, store, "x", blob)

	_, _, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, kserrors.ErrUnknownCoder)
}

func TestFileStore_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t, DriverDir, coder.AES256)
	writeBlob(t, store, "x", []byte{})

	_, found, err := store.Get(ctx, "x")
	assert.False(t, found)
	assert.ErrorIs(t, err, kserrors.ErrIntegrity)
}

func TestFileStore_AccountScoping(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	alice, err := NewFileStore(FileStoreConfig{Dir: dir, Account: "alice"})
	require.NoError(t, err)
	defer alice.Close()
	bob, err := NewFileStore(FileStoreConfig{Dir: dir, Account: "bob"})
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, alice.Set(ctx, "token", []byte("a")))

	_, found, err := bob.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStore_DiskLayout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	store, err := NewFileStore(FileStoreConfig{Dir: dir, Account: "alice"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "prod/db-password", []byte("hunter2")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		info, err := e.Info()
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), e.Name())

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hunter2")
	}

	assert.Contains(t, names, keyFileName)
	assert.Contains(t, names, store.ref("prod/db-password")+blobExt)
	for _, name := range names {
		assert.NotContains(t, name, "db-password", "ids must not appear on disk")
		assert.False(t, strings.HasSuffix(name, ".tmp"), "temp file left behind: %s", name)
	}
}

func TestFileStore_ConcurrentAccess(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		store := newTestFileStore(t, driver, coder.AES256)

		const workers = 8
		const rounds = 20

		var wg sync.WaitGroup
		errs := make(chan error, workers*rounds*2)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				own := fmt.Sprintf("own/%d", w)
				for i := 0; i < rounds; i++ {
					// Shared id: last writer wins, but every read is a whole value.
					if err := store.Set(ctx, "shared", []byte(fmt.Sprintf("w%d-%d", w, i))); err != nil {
						errs <- err
					}
					if got, found, err := store.Get(ctx, "shared"); err != nil {
						errs <- err
					} else if !found || !bytes.HasPrefix(got, []byte("w")) {
						errs <- fmt.Errorf("torn read: %q", got)
					}
					if err := store.Set(ctx, own, []byte(fmt.Sprint(i))); err != nil {
						errs <- err
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Error(err)
		}

		for w := 0; w < workers; w++ {
			got, found, err := store.Get(ctx, fmt.Sprintf("own/%d", w))
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte(fmt.Sprint(rounds-1)), got)
		}
		assert.Zero(t, store.locks.size(), "lock table should drain")
	})
}

func TestFileStore_Migrate(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		dir := t.TempDir()

		old, err := NewFileStore(FileStoreConfig{Dir: dir, Driver: driver, Account: "alice", Coder: coder.AES128})
		require.NoError(t, err)
		require.NoError(t, old.Set(ctx, "a", []byte("alpha")))
		require.NoError(t, old.Set(ctx, "b", []byte("beta")))
		require.NoError(t, old.Close())

		store, err := NewFileStore(FileStoreConfig{Dir: dir, Driver: driver, Account: "alice", Coder: coder.ChaCha20Poly1305})
		require.NoError(t, err)
		defer store.Close()

		// Old blobs stay readable before migration.
		got, _, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), got)

		require.NoError(t, store.Set(ctx, "c", []byte("gamma")))

		inv, err := store.Inventory(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[coder.ID]int{coder.AES128: 2, coder.ChaCha20Poly1305: 1}, inv)

		n, err := store.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		for id, want := range map[string]string{"a": "alpha", "b": "beta", "c": "gamma"} {
			assert.Equal(t, byte(coder.ChaCha20Poly1305), readBlob(t, store, id)[0])
			got, found, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte(want), got)
		}

		n, err = store.Migrate(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "second migration has nothing to do")
	})
}

func TestFileStore_MigrateReportsBrokenBlobs(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t, DriverDir, coder.AES256)

	require.NoError(t, store.Set(ctx, "good", []byte("ok")))
	writeBlob(t, store, "bad", []byte{0x7f, 1, 2, 3})

	n, err := store.Migrate(ctx)
	assert.Zero(t, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, kserrors.ErrUnknownCoder)
}

func TestFileStore_Config(t *testing.T) {
	_, err := NewFileStore(FileStoreConfig{})
	var cfgErr *kserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewFileStore(FileStoreConfig{Dir: t.TempDir(), Driver: "bolt"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "fallback.driver", cfgErr.Key)

	_, err = NewFileStore(FileStoreConfig{Dir: t.TempDir(), Coder: coder.ID(0x7f)})
	assert.ErrorIs(t, err, kserrors.ErrUnknownCoder)

	store, err := NewFileStore(FileStoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, coder.Default, store.Coder())
	assert.Equal(t, DriverDir, store.Driver())
}

func TestKeyedMutex(t *testing.T) {
	var km keyedMutex

	unlockA := km.Lock("a")
	unlockB := km.Lock("b") // different key does not block
	assert.Equal(t, 2, km.size())

	acquired := make(chan struct{})
	go func() {
		unlock := km.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked key")
	default:
	}

	unlockA()
	<-acquired
	unlockB()
	assert.Zero(t, km.size())
}

func TestFileStore_InventoryHonorsIDLock(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t, DriverDir, coder.AES256)
	require.NoError(t, store.Set(ctx, "held", []byte("v")))

	unlock := store.locks.Lock(store.ref("held"))
	done := make(chan map[coder.ID]int, 1)
	go func() {
		inv, err := store.Inventory(ctx)
		assert.NoError(t, err)
		done <- inv
	}()

	select {
	case <-done:
		t.Fatal("inventory read a blob while its id was locked")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()
	select {
	case inv := <-done:
		assert.Equal(t, 1, inv[coder.AES256])
	case <-time.After(5 * time.Second):
		t.Fatal("inventory did not finish after unlock")
	}
}
