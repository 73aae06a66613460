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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tombee/keystash/internal/config"
	"github.com/tombee/keystash/internal/log"
)

// Candidates builds the backends listed in cfg, in priority order.
func Candidates(cfg *config.Config, logger *slog.Logger) ([]Store, error) {
	if logger == nil {
		logger = log.Discard()
	}

	stores := make([]Store, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		switch name {
		case config.BackendKeychain:
			stores = append(stores, NewKeychainStore(cfg.Account, logger))
		case config.BackendKeyring:
			stores = append(stores, NewKeyringStore(cfg.Account, logger))
		case config.BackendFile:
			dir, err := cfg.StoreDir()
			if err != nil {
				closeAll(stores)
				return nil, err
			}
			fs, err := NewFileStore(FileStoreConfig{
				Dir:        dir,
				Driver:     cfg.Fallback.Driver,
				Account:    cfg.Account,
				Coder:      cfg.CoderID(),
				Passphrase: cfg.Passphrase(),
				Logger:     logger,
			})
			if err != nil {
				closeAll(stores)
				return nil, err
			}
			stores = append(stores, fs)
		default:
			closeAll(stores)
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	return stores, nil
}

// Open builds the facade described by cfg. Call Close when done.
func Open(cfg *config.Config, logger *slog.Logger, opts ...FacadeOption) (*Facade, error) {
	stores, err := Candidates(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append([]FacadeOption{WithLogger(logger)}, opts...)
	return NewFacade(NewSelector(logger, stores...), opts...), nil
}

// Close releases every candidate backend that holds resources.
func (f *Facade) Close() error {
	return closeAll(f.selector.Candidates())
}

func closeAll(stores []Store) error {
	var errs []error
	for _, s := range stores {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
