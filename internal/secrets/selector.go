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
	"log/slog"
	"sync"

	"github.com/tombee/keystash/internal/log"
)

// Selector picks the backend used for the lifetime of the process.
//
// Candidates are probed in order and the first available one wins. The
// outcome, including failure, is computed once and then reused, so a
// backend that later becomes available is not picked up.
type Selector struct {
	candidates []Store
	logger     *slog.Logger

	once     sync.Once
	selected Store
}

// NewSelector creates a selector over candidates in priority order.
func NewSelector(logger *slog.Logger, candidates ...Store) *Selector {
	if logger == nil {
		logger = log.Discard()
	}
	return &Selector{
		candidates: candidates,
		logger:     log.WithComponent(logger, "selector"),
	}
}

// Select returns the chosen backend or ErrNoBackend.
func (s *Selector) Select() (Store, error) {
	s.once.Do(func() {
		for _, c := range s.candidates {
			if c.Available() {
				s.selected = c
				s.logger.Debug("backend selected", slog.String(log.BackendKey, c.Name()))
				return
			}
			s.logger.Debug("backend unavailable", slog.String(log.BackendKey, c.Name()))
		}
		s.logger.Error("no secret store backend available", slog.Int("candidates", len(s.candidates)))
	})

	if s.selected == nil {
		return nil, ErrNoBackend
	}
	return s.selected, nil
}

// Candidates returns the configured backends in priority order.
func (s *Selector) Candidates() []Store {
	return s.candidates
}

// Lookup returns the candidate with the given name.
func (s *Selector) Lookup(name string) (Store, bool) {
	for _, c := range s.candidates {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
