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

package errors

import (
	"errors"
	"fmt"
)

// Security failure kinds. A SecurityError matches its kind with errors.Is.
var (
	// ErrUnknownCoder is returned when a blob carries a coder tag that is not registered.
	ErrUnknownCoder = errors.New("unknown coder")

	// ErrMalformedKey is returned when key material does not fit the coder variant.
	ErrMalformedKey = errors.New("malformed key")

	// ErrIntegrity is returned when authenticated decryption fails or a blob is truncated.
	ErrIntegrity = errors.New("integrity check failed")
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Secret lookups do not use it (a missing secret is a plain result); it is
// reserved for things like a missing config file or an unknown backend name.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "backend", "config file")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IOError represents a failure of a native credential API or of local storage.
// Code carries the native status (e.g. an OSStatus) when the backend exposes one.
type IOError struct {
	// Backend is the backend name (e.g., "keychain", "keyring", "file")
	Backend string

	// Op is the store operation that failed (e.g., "get", "set")
	Op string

	// Code is the native status code, 0 when the backend has none
	Code int

	// Message is the native human-readable message, if any
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Backend, e.Op)

	switch {
	case e.Code != 0 && e.Message != "":
		msg = fmt.Sprintf("%s (%d: %s)", msg, e.Code, e.Message)
	case e.Code != 0:
		msg = fmt.Sprintf("%s (%d)", msg, e.Code)
	case e.Message != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}

	if e.Cause != nil && e.Message == "" {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *IOError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *IOError) ErrorType() string { return CategoryIO }

// IsRetryable implements ErrorClassifier.
func (e *IOError) IsRetryable() bool { return true }

// IsUserVisible implements UserVisibleError.
func (e *IOError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *IOError) UserMessage() string {
	return fmt.Sprintf("the %s backend could not complete %s", e.Backend, e.Op)
}

// Suggestion implements UserVisibleError.
func (e *IOError) Suggestion() string {
	switch e.Backend {
	case "keychain", "keyring":
		return "Check that the credential store is unlocked, or select the file backend with --backend file"
	default:
		return "Check permissions on the store directory"
	}
}

// SecurityError represents a decode that must not be trusted: an unknown coder
// tag, unusable key material, or a failed authentication check.
type SecurityError struct {
	// Kind is one of ErrUnknownCoder, ErrMalformedKey, ErrIntegrity
	Kind error

	// Coder names the coder variant involved, if known
	Coder string

	// Reason adds detail to Kind
	Reason string

	// Cause is the underlying error (e.g., from crypto/cipher)
	Cause error
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	msg := "security error"
	if e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Coder != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Coder)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *SecurityError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// ErrorType implements ErrorClassifier.
func (e *SecurityError) ErrorType() string { return CategorySecurity }

// IsRetryable implements ErrorClassifier.
func (e *SecurityError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *SecurityError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *SecurityError) UserMessage() string {
	return "stored secret failed verification"
}

// Suggestion implements UserVisibleError.
func (e *SecurityError) Suggestion() string {
	if errors.Is(e.Kind, ErrUnknownCoder) {
		return "The secret was written by a newer keystash; upgrade before reading it"
	}
	return "Treat the store as tampered with; restore it from a trusted backup"
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "fallback.coder")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewSecurityError builds a SecurityError of the given kind.
func NewSecurityError(kind error, coder, reason string, cause error) *SecurityError {
	return &SecurityError{Kind: kind, Coder: coder, Reason: reason, Cause: cause}
}
