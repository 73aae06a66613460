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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tombee/keystash/internal/log"
	"github.com/tombee/keystash/pkg/coder"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// Fallback storage drivers.
const (
	DriverDir    = "dir"
	DriverSQLite = "sqlite"
)

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Dir holds the blobs and keys.yaml. Created with 0700 on first write.
	Dir string

	// Driver is DriverDir (default) or DriverSQLite.
	Driver string

	// Account scopes secret ids.
	Account string

	// Coder is the variant used for new writes. Defaults to coder.Default.
	Coder coder.ID

	// Passphrase seals keys.yaml when set.
	Passphrase string

	// WatchDebounce coalesces bursts of filesystem events for a watched
	// secret into one change. Defaults to DefaultWatchDebounce; negative
	// disables debouncing.
	WatchDebounce time.Duration

	Logger *slog.Logger
}

// DefaultWatchDebounce is the quiet period Watch waits for before
// reporting a change.
const DefaultWatchDebounce = 100 * time.Millisecond

// FileStore keeps secrets on local disk under authenticated encryption.
// It is the fallback used when no native credential store is available.
//
// Each secret is one blob in the coder wire format. Blobs written by any
// registered coder stay readable; new writes use the configured coder.
type FileStore struct {
	dir     string
	driver  string
	account string
	current coder.ID

	blobs  blobStore
	keys   *KeyFile
	locks  keyedMutex
	logger *slog.Logger

	watchDebounce time.Duration
}

// NewFileStore creates the fallback store.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, &kserrors.ConfigError{Key: "fallback.dir", Reason: "must not be empty"}
	}
	if cfg.Coder == 0 {
		cfg.Coder = coder.Default
	}
	if _, err := coder.Lookup(cfg.Coder); err != nil {
		return nil, err
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverDir
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = log.WithBackend(logger, "file")

	var blobs blobStore
	switch cfg.Driver {
	case DriverDir:
		blobs = newDirBlobs(cfg.Dir)
	case DriverSQLite:
		s, err := newSQLiteBlobs(cfg.Dir)
		if err != nil {
			return nil, &kserrors.IOError{Backend: "file", Op: "open", Cause: err}
		}
		blobs = s
	default:
		return nil, &kserrors.ConfigError{
			Key:    "fallback.driver",
			Reason: fmt.Sprintf("unknown driver %q", cfg.Driver),
		}
	}

	debounce := cfg.WatchDebounce
	switch {
	case debounce == 0:
		debounce = DefaultWatchDebounce
	case debounce < 0:
		debounce = 0
	}

	return &FileStore{
		dir:     cfg.Dir,
		driver:  cfg.Driver,
		account: cfg.Account,
		current: cfg.Coder,
		blobs:   blobs,
		keys:    NewKeyFile(cfg.Dir, cfg.Passphrase, logger),
		logger:  logger,

		watchDebounce: debounce,
	}, nil
}

// Name returns the backend identifier.
func (f *FileStore) Name() string {
	return "file"
}

// Available always returns true. The fallback store is the last resort.
func (f *FileStore) Available() bool {
	return true
}

// Dir returns the store directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// Driver returns the blob driver name.
func (f *FileStore) Driver() string {
	return f.driver
}

// Coder returns the variant used for new writes.
func (f *FileStore) Coder() coder.ID {
	return f.current
}

// KeyFile returns the key file backing this store.
func (f *FileStore) KeyFile() *KeyFile {
	return f.keys
}

// Has reports whether a blob exists for id. The blob is not decoded.
func (f *FileStore) Has(ctx context.Context, id string) (bool, error) {
	ref := f.ref(id)
	unlock := f.locks.Lock(ref)
	defer unlock()

	_, ok, err := f.blobs.Read(ctx, ref)
	if err != nil {
		return false, f.ioError("has", err)
	}
	return ok, nil
}

// Get decodes the blob for id. A blob that fails verification is a security
// error, never "absent".
func (f *FileStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	ref := f.ref(id)
	unlock := f.locks.Lock(ref)
	defer unlock()

	blob, ok, err := f.blobs.Read(ctx, ref)
	if err != nil {
		return nil, false, f.ioError("get", err)
	}
	if !ok {
		return nil, false, nil
	}

	payload, err := coder.Decode(blob, f.keys.Key)
	if err != nil {
		if kserrors.IsSecurity(err) {
			f.logger.Warn("stored secret failed verification", log.SecretID(id), log.Error(err))
		}
		return nil, false, err
	}
	return payload, true, nil
}

// Set encodes payload with the current coder and stores it under id.
func (f *FileStore) Set(ctx context.Context, id string, payload []byte) error {
	ref := f.ref(id)
	unlock := f.locks.Lock(ref)
	defer unlock()

	blob, err := f.encode(payload)
	if err != nil {
		return err
	}
	if err := f.blobs.Write(ctx, ref, blob); err != nil {
		return f.ioError("set", err)
	}
	return nil
}

// Delete removes the blob for id. A missing blob is not an error.
func (f *FileStore) Delete(ctx context.Context, id string) error {
	ref := f.ref(id)
	unlock := f.locks.Lock(ref)
	defer unlock()

	if err := f.blobs.Remove(ctx, ref); err != nil {
		return f.ioError("delete", err)
	}
	return nil
}

// Migrate re-encodes every blob not written by the current coder. Blobs
// that cannot be decoded are left untouched and reported in the returned
// error; the rest are still migrated.
func (f *FileStore) Migrate(ctx context.Context) (int, error) {
	refs, err := f.blobs.Refs(ctx)
	if err != nil {
		return 0, f.ioError("migrate", err)
	}

	var (
		migrated int
		errs     []error
	)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		done, err := f.migrateOne(ctx, ref)
		if err != nil {
			f.logger.Warn("failed to migrate secret", slog.String("ref", ref), log.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			continue
		}
		if done {
			migrated++
		}
	}

	migratedTotal.Add(float64(migrated))
	return migrated, errors.Join(errs...)
}

func (f *FileStore) migrateOne(ctx context.Context, ref string) (bool, error) {
	unlock := f.locks.Lock(ref)
	defer unlock()

	blob, ok, err := f.blobs.Read(ctx, ref)
	if err != nil {
		return false, f.ioError("migrate", err)
	}
	if !ok {
		return false, nil
	}

	tag, err := coder.Tag(blob)
	if err != nil {
		return false, err
	}
	if tag == f.current {
		return false, nil
	}

	payload, err := coder.Decode(blob, f.keys.Key)
	if err != nil {
		return false, err
	}
	defer clear(payload)

	upgraded, err := f.encode(payload)
	if err != nil {
		return false, err
	}
	if err := f.blobs.Write(ctx, ref, upgraded); err != nil {
		return false, f.ioError("migrate", err)
	}

	f.logger.Debug("migrated secret", slog.String("ref", ref),
		slog.String("from", tag.String()), slog.String(log.CoderKey, f.current.String()))
	return true, nil
}

// Inventory counts stored blobs by coder tag.
func (f *FileStore) Inventory(ctx context.Context) (map[coder.ID]int, error) {
	refs, err := f.blobs.Refs(ctx)
	if err != nil {
		return nil, f.ioError("inventory", err)
	}

	counts := make(map[coder.ID]int)
	for _, ref := range refs {
		unlock := f.locks.Lock(ref)
		blob, ok, err := f.blobs.Read(ctx, ref)
		unlock()
		if err != nil {
			return nil, f.ioError("inventory", err)
		}
		if !ok || len(blob) == 0 {
			continue
		}
		counts[coder.ID(blob[0])]++
	}
	return counts, nil
}

// Close releases the blob driver and wipes cached keys.
func (f *FileStore) Close() error {
	f.keys.Close()
	return f.blobs.Close()
}

func (f *FileStore) encode(payload []byte) ([]byte, error) {
	key, err := f.keys.KeyForWrite(f.current)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	return coder.Encode(f.current, key, payload)
}

// ref derives the storage reference for id. Ids never appear on disk.
func (f *FileStore) ref(id string) string {
	sum := sha256.Sum256([]byte(f.account + "\x00" + id))
	return hex.EncodeToString(sum[:])
}

func (f *FileStore) ioError(op string, err error) error {
	var ioErr *kserrors.IOError
	if errors.As(err, &ioErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &kserrors.IOError{Backend: "file", Op: op, Cause: err}
}
