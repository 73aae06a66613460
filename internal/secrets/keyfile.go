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
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"github.com/tombee/keystash/internal/log"
	"github.com/tombee/keystash/pkg/coder"
	kserrors "github.com/tombee/keystash/pkg/errors"
	"github.com/tombee/keystash/pkg/random"
)

const (
	keyFileName    = "keys.yaml"
	keyFileVersion = 1

	// Argon2id parameters for the key-encryption key.
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64MB in KB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // 256 bits for AES-256
	argon2SaltLength  = 16

	// sealCoder protects key entries when a passphrase is set.
	sealCoder = coder.AES256
)

// keyFileDoc is the on-disk layout of keys.yaml.
type keyFileDoc struct {
	Version int        `yaml:"version"`
	KDF     *kdfParams `yaml:"kdf,omitempty"`
	Keys    []keyEntry `yaml:"keys"`
}

// kdfParams is present when entries are sealed under a passphrase.
type kdfParams struct {
	Algorithm string `yaml:"algorithm"`
	Salt      string `yaml:"salt"`
	Time      uint32 `yaml:"time"`
	Memory    uint32 `yaml:"memory"`
	Threads   uint8  `yaml:"threads"`
}

type keyEntry struct {
	Coder   string    `yaml:"coder"`
	ID      uint8     `yaml:"id"`
	Key     string    `yaml:"key"`
	Created time.Time `yaml:"created"`
}

// KeyFile holds the fallback store's key material: one key per coder
// variant, minted on first write with that variant and kept forever so
// older blobs stay decodable.
//
// Without a passphrase keys are stored as plain base64 and protected only by
// the file's 0600 permissions. With a passphrase, each key is sealed with
// AES-256-GCM under a key derived by Argon2id; the salt and cost parameters
// live in the file. Whether a file is sealed is decided when it is created.
type KeyFile struct {
	path       string
	passphrase []byte
	logger     *slog.Logger

	mu      sync.Mutex
	keys    map[coder.ID][]byte
	kek     []byte
	kekSalt string
}

// NewKeyFile creates a key file handle for dir/keys.yaml. Nothing is read
// until a key is needed.
func NewKeyFile(dir, passphrase string, logger *slog.Logger) *KeyFile {
	if logger == nil {
		logger = log.Discard()
	}
	return &KeyFile{
		path:       filepath.Join(dir, keyFileName),
		passphrase: []byte(passphrase),
		logger:     log.WithComponent(logger, "keyfile"),
		keys:       make(map[coder.ID][]byte),
	}
}

// Path returns the key file location.
func (k *KeyFile) Path() string {
	return k.path
}

// Key returns a copy of the key recorded for id. A variant that never wrote
// anything has no key, which is reported as a malformed-key security error.
func (k *KeyFile) Key(id coder.ID) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, ok, err := k.lookup(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, id.String(), "no key recorded for this coder", nil)
	}
	return bytes.Clone(key), nil
}

// KeyForWrite returns a copy of the key for id, minting and persisting one
// if the variant has not been used yet.
func (k *KeyFile) KeyForWrite(id coder.ID) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, ok, err := k.lookup(id)
	if err != nil {
		return nil, err
	}
	if ok {
		return bytes.Clone(key), nil
	}

	c, err := coder.New(id)
	if err != nil {
		return nil, err
	}
	key = c.Key()

	doc, err := k.read()
	if err != nil {
		return nil, err
	}
	if len(doc.Keys) == 0 && doc.KDF == nil && len(k.passphrase) > 0 {
		doc.KDF = newKDFParams()
	}
	if err := k.verifyPassphrase(doc); err != nil {
		return nil, err
	}

	encoded, err := k.seal(doc, key)
	if err != nil {
		return nil, err
	}
	doc.Keys = append(doc.Keys, keyEntry{
		Coder:   id.String(),
		ID:      uint8(id),
		Key:     encoded,
		Created: time.Now().UTC(),
	})

	if err := k.write(doc); err != nil {
		return nil, err
	}

	k.keys[id] = key
	k.logger.Info("minted key", slog.String(log.CoderKey, id.String()), slog.Bool("sealed", doc.KDF != nil))
	return bytes.Clone(key), nil
}

// Sealed reports whether the file on disk protects keys with a passphrase.
func (k *KeyFile) Sealed() (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	doc, err := k.read()
	if err != nil {
		return false, err
	}
	return doc.KDF != nil, nil
}

// Close wipes cached key material.
func (k *KeyFile) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for id, key := range k.keys {
		clear(key)
		delete(k.keys, id)
	}
	clear(k.kek)
	k.kek = nil
	k.kekSalt = ""
}

// lookup finds the cached or stored key for id. Caller holds mu.
func (k *KeyFile) lookup(id coder.ID) ([]byte, bool, error) {
	if key, ok := k.keys[id]; ok {
		return key, true, nil
	}

	doc, err := k.read()
	if err != nil {
		return nil, false, err
	}

	for _, e := range doc.Keys {
		if coder.ID(e.ID) != id {
			continue
		}
		key, err := k.open(doc, e)
		if err != nil {
			return nil, false, err
		}
		k.keys[id] = key
		return key, true, nil
	}
	return nil, false, nil
}

// read loads the document. A missing file is an empty document.
func (k *KeyFile) read() (*keyFileDoc, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &keyFileDoc{Version: keyFileVersion}, nil
		}
		return nil, &kserrors.IOError{Backend: "file", Op: "read key file", Cause: err}
	}

	k.checkPermissions()

	var doc keyFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, "", "key file is not valid YAML", err)
	}
	if doc.Version != keyFileVersion {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, "",
			fmt.Sprintf("unsupported key file version %d", doc.Version), nil)
	}
	return &doc, nil
}

// write saves the document atomically with 0600 permissions.
func (k *KeyFile) write(doc *keyFileDoc) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	dir := filepath.Dir(k.path)
	if err := ensurePrivateDir(dir); err != nil {
		return &kserrors.IOError{Backend: "file", Op: "write key file", Cause: err}
	}

	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return &kserrors.IOError{Backend: "file", Op: "write key file", Cause: err}
	}
	if err := os.Rename(tmpPath, k.path); err != nil {
		os.Remove(tmpPath)
		return &kserrors.IOError{Backend: "file", Op: "write key file", Cause: err}
	}
	return nil
}

// seal encodes key for storage in doc.
func (k *KeyFile) seal(doc *keyFileDoc, key []byte) (string, error) {
	kek, err := k.kekFor(doc)
	if err != nil {
		return "", err
	}
	if kek == nil {
		return base64.StdEncoding.EncodeToString(key), nil
	}

	blob, err := coder.Encode(sealCoder, kek, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// open decodes a stored entry.
func (k *KeyFile) open(doc *keyFileDoc, e keyEntry) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, e.Coder, "key entry is not valid base64", err)
	}

	kek, err := k.kekFor(doc)
	if err != nil {
		return nil, err
	}
	if kek == nil {
		return raw, nil
	}

	key, err := coder.Decode(raw, func(coder.ID) ([]byte, error) {
		return bytes.Clone(kek), nil
	})
	if err != nil {
		return nil, kserrors.NewSecurityError(kserrors.ErrIntegrity, e.Coder,
			"key entry could not be unsealed (wrong passphrase or corrupted key file)", err)
	}
	return key, nil
}

// verifyPassphrase proves the configured passphrase against a sealed doc by
// opening one existing entry. Without it a mistyped passphrase would seal a
// new entry under a different KEK and leave the file unusable with the
// right one.
func (k *KeyFile) verifyPassphrase(doc *keyFileDoc) error {
	if doc.KDF == nil || len(doc.Keys) == 0 {
		return nil
	}
	key, err := k.open(doc, doc.Keys[0])
	if err != nil {
		if kserrors.IsSecurity(err) {
			k.logger.Warn("refusing to mint key: passphrase does not open key file", slog.String("path", k.path))
		}
		return err
	}
	clear(key)
	return nil
}

// kekFor returns the key-encryption key for doc, or nil when doc is unsealed.
func (k *KeyFile) kekFor(doc *keyFileDoc) ([]byte, error) {
	if doc.KDF == nil {
		if len(k.passphrase) > 0 && len(doc.Keys) > 0 {
			k.logger.Warn("passphrase is set but the key file was created without one; keys stay unsealed",
				slog.String("path", k.path))
		}
		return nil, nil
	}
	if len(k.passphrase) == 0 {
		return nil, &kserrors.ConfigError{
			Key:    "fallback.passphrase_env",
			Reason: fmt.Sprintf("key file %s is sealed but no passphrase is set", k.path),
		}
	}
	if doc.KDF.Algorithm != "argon2id" {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, "",
			fmt.Sprintf("unsupported key derivation %q", doc.KDF.Algorithm), nil)
	}
	if k.kek != nil && k.kekSalt == doc.KDF.Salt {
		return k.kek, nil
	}

	salt, err := base64.StdEncoding.DecodeString(doc.KDF.Salt)
	if err != nil || len(salt) == 0 {
		return nil, kserrors.NewSecurityError(kserrors.ErrMalformedKey, "", "key file salt is invalid", err)
	}

	clear(k.kek)
	k.kek = argon2.IDKey(k.passphrase, salt, doc.KDF.Time, doc.KDF.Memory, doc.KDF.Threads, argon2KeyLength)
	k.kekSalt = doc.KDF.Salt
	return k.kek, nil
}

func (k *KeyFile) checkPermissions() {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(k.path)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		k.logger.Warn("key file is readable by other users", slog.String("path", k.path), slog.String("mode", perm.String()))
	}
}

func newKDFParams() *kdfParams {
	return &kdfParams{
		Algorithm: "argon2id",
		Salt:      base64.StdEncoding.EncodeToString(random.Bytes(argon2SaltLength)),
		Time:      argon2Time,
		Memory:    argon2Memory,
		Threads:   argon2Parallelism,
	}
}
