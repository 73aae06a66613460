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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// blobStore persists opaque encoded blobs under a reference derived from the
// secret id. It never sees plaintext.
type blobStore interface {
	// Read returns the blob for ref, or false when there is none.
	Read(ctx context.Context, ref string) ([]byte, bool, error)

	// Write atomically creates or replaces the blob for ref.
	Write(ctx context.Context, ref string, blob []byte) error

	// Remove deletes the blob for ref. A missing blob is not an error.
	Remove(ctx context.Context, ref string) error

	// Refs lists every stored reference.
	Refs(ctx context.Context) ([]string, error)

	// Close releases resources held by the driver.
	Close() error
}

const blobExt = ".secret"

// dirBlobs stores one file per secret in a private directory.
type dirBlobs struct {
	dir string
}

func newDirBlobs(dir string) *dirBlobs {
	return &dirBlobs{dir: dir}
}

func (d *dirBlobs) path(ref string) string {
	return filepath.Join(d.dir, ref+blobExt)
}

func (d *dirBlobs) Read(ctx context.Context, ref string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	blob, err := os.ReadFile(d.path(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read blob: %w", err)
	}
	return blob, true, nil
}

func (d *dirBlobs) Write(ctx context.Context, ref string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensurePrivateDir(d.dir); err != nil {
		return err
	}

	// Write to a uniquely named temp file first (atomic write)
	tmpPath := filepath.Join(d.dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(blob); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, d.path(ref)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (d *dirBlobs) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(d.path(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

func (d *dirBlobs) Refs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var refs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, blobExt) {
			continue
		}
		refs = append(refs, strings.TrimSuffix(name, blobExt))
	}
	return refs, nil
}

func (d *dirBlobs) Close() error {
	return nil
}

// ensurePrivateDir creates dir with 0700 permissions if it does not exist.
func ensurePrivateDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("store path exists but is not a directory: %s", dir)
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}
