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


package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tombee/keystash/internal/secrets"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"explicit exit error", NewNotFoundError("db/password"), ExitNotFound},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewNonInteractiveError("need a tty")), ExitNonInteractive},
		{"validation", &kserrors.ValidationError{Field: "id", Message: "empty"}, ExitUsage},
		{"config", &kserrors.ConfigError{Key: "backends", Reason: "unknown"}, ExitUsage},
		{"no backend", fmt.Errorf("get: %w", secrets.ErrNoBackend), ExitBackend},
		{"io", &kserrors.IOError{Backend: "file", Op: "set"}, ExitBackend},
		{"security", kserrors.NewSecurityError(kserrors.ErrIntegrity, "aes-256", "tag mismatch", nil), ExitSecurity},
		{"operation error keeps category", NewOperationError("get failed", &kserrors.IOError{Backend: "keyring", Op: "get"}), ExitBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid id", &kserrors.ValidationError{Field: "id"}, ErrorCodeInvalidID},
		{"invalid config", &kserrors.ConfigError{Key: "log.level"}, ErrorCodeInvalidConfig},
		{"not found", NewNotFoundError("x"), ErrorCodeNotFound},
		{"no backend", secrets.ErrNoBackend, ErrorCodeNoBackend},
		{"backend io", &kserrors.IOError{Backend: "keychain"}, ErrorCodeBackendIO},
		{"integrity", kserrors.NewSecurityError(kserrors.ErrIntegrity, "", "", nil), ErrorCodeIntegrity},
		{"missing input", NewNonInteractiveError("no value"), ErrorCodeMissingInput},
		{"other", errors.New("boom"), ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCodeFor(tt.err); got != tt.want {
				t.Errorf("ErrorCodeFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := &ExitError{Code: ExitBackend, Message: "set failed", Cause: cause}

	if err.Error() != "set failed: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected ExitError to unwrap to its cause")
	}
	if (&ExitError{Message: "bare"}).Error() != "bare" {
		t.Error("expected bare message without cause")
	}
}

func TestSuggestionFor(t *testing.T) {
	ioErr := &kserrors.IOError{Backend: "file", Op: "set"}
	if SuggestionFor(fmt.Errorf("wrapped: %w", ioErr)) != ioErr.Suggestion() {
		t.Error("expected the IOError suggestion")
	}

	validation := &kserrors.ValidationError{Field: "id", Message: "empty", Suggestion: "Pass a non-empty id"}
	if got := SuggestionFor(validation); got != "Pass a non-empty id" {
		t.Errorf("SuggestionFor() = %q", got)
	}

	if SuggestionFor(errors.New("boom")) != "" {
		t.Error("plain errors carry no suggestion")
	}
}
