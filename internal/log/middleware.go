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


package log

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CommandRun describes one CLI invocation for logging purposes.
type CommandRun struct {
	// Command is the full command path (e.g., "keystash get").
	Command string

	// RunID correlates the start and finish records. Generated when empty.
	RunID string

	// SecretID is the secret the command operates on, if any.
	SecretID string

	// Backend is the backend override requested with --backend, if any.
	Backend string
}

// CommandMiddleware logs the start and outcome of each command run.
type CommandMiddleware struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCommandMiddleware creates a command logging middleware.
func NewCommandMiddleware(logger *slog.Logger) *CommandMiddleware {
	if logger == nil {
		logger = Discard()
	}
	return &CommandMiddleware{logger: logger, now: time.Now}
}

func (r *CommandRun) attrs() []any {
	attrs := []any{"command", r.Command, "run_id", r.RunID}
	if r.SecretID != "" {
		attrs = append(attrs, SecretID(r.SecretID))
	}
	if r.Backend != "" {
		attrs = append(attrs, BackendKey, r.Backend)
	}
	return attrs
}

// Handler runs fn, logging a debug record before and a summary after.
// Failures are logged at warn; the error is returned unchanged.
func (m *CommandMiddleware) Handler(ctx context.Context, run *CommandRun, fn func() error) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	start := m.now()

	m.logger.DebugContext(ctx, "command started", run.attrs()...)

	err := fn()

	attrs := append(run.attrs(),
		"success", err == nil,
		Duration("duration", m.now().Sub(start).Milliseconds()),
	)
	if err != nil {
		m.logger.WarnContext(ctx, "command failed", append(attrs, Error(err))...)
		return err
	}
	m.logger.DebugContext(ctx, "command completed", attrs...)
	return nil
}
