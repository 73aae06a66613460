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

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *kserrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &kserrors.ValidationError{Field: "id", Message: "must not be empty"},
			wantMsg: "validation failed on id: must not be empty",
		},
		{
			name:    "without field",
			err:     &kserrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *kserrors.IOError
		wantMsg string
	}{
		{
			name:    "code and message",
			err:     &kserrors.IOError{Backend: "keychain", Op: "set", Code: -25299, Message: "The specified item already exists in the keychain."},
			wantMsg: "keychain set failed (-25299: The specified item already exists in the keychain.)",
		},
		{
			name:    "code only",
			err:     &kserrors.IOError{Backend: "keychain", Op: "get", Code: -128},
			wantMsg: "keychain get failed (-128)",
		},
		{
			name:    "cause only",
			err:     &kserrors.IOError{Backend: "file", Op: "set", Cause: errors.New("disk full")},
			wantMsg: "file set failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("outer: %w", &kserrors.IOError{Backend: "file", Op: "get", Cause: cause})

	if !errors.Is(err, cause) {
		t.Error("IOError should unwrap to its cause")
	}
	if !kserrors.IsIO(err) {
		t.Error("IsIO should find wrapped IOError")
	}
	if kserrors.IsSecurity(err) {
		t.Error("IsSecurity should not match an IOError")
	}
}

func TestSecurityError_KindMatching(t *testing.T) {
	cause := errors.New("cipher: message authentication failed")
	err := kserrors.NewSecurityError(kserrors.ErrIntegrity, "aes-256", "payload rejected", cause)

	if !errors.Is(err, kserrors.ErrIntegrity) {
		t.Error("SecurityError should match its kind")
	}
	if errors.Is(err, kserrors.ErrUnknownCoder) {
		t.Error("SecurityError should not match another kind")
	}
	if !errors.Is(err, cause) {
		t.Error("SecurityError should unwrap to its cause")
	}
	if got, want := err.Error(), "integrity check failed [aes-256]: payload rejected"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifiers(t *testing.T) {
	var classifier kserrors.ErrorClassifier

	classifier = &kserrors.IOError{Backend: "keyring", Op: "get"}
	if classifier.ErrorType() != "io" || !classifier.IsRetryable() {
		t.Errorf("IOError classified as %s retryable=%v", classifier.ErrorType(), classifier.IsRetryable())
	}

	classifier = kserrors.NewSecurityError(kserrors.ErrUnknownCoder, "", "tag 0x7f", nil)
	if classifier.ErrorType() != "security" || classifier.IsRetryable() {
		t.Errorf("SecurityError classified as %s retryable=%v", classifier.ErrorType(), classifier.IsRetryable())
	}
}

func TestSecurityError_Suggestion(t *testing.T) {
	unknown := kserrors.NewSecurityError(kserrors.ErrUnknownCoder, "", "", nil)
	tampered := kserrors.NewSecurityError(kserrors.ErrIntegrity, "", "", nil)

	if unknown.Suggestion() == tampered.Suggestion() {
		t.Error("unknown coder and tampering should give different suggestions")
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := &kserrors.ConfigError{Key: "fallback.coder", Reason: "unknown coder", Cause: cause}

	if got, want := err.Error(), "config error at fallback.coder: unknown coder"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
}

func TestNotFoundError_Error(t *testing.T) {
	err := &kserrors.NotFoundError{Resource: "backend", ID: "vault"}
	if got, want := err.Error(), "backend not found: vault"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
