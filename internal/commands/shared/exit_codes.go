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
	"os"

	"github.com/tombee/keystash/internal/secrets"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// Exit codes for keystash commands
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitUsage          = 2 // bad arguments, invalid ids, invalid config
	ExitNotFound       = 3 // the requested secret does not exist
	ExitBackend        = 4 // no backend, or a backend I/O failure
	ExitSecurity       = 5 // integrity or key failure; never retry
	ExitNonInteractive = 70 // input required but no terminal (EX_SOFTWARE from sysexits.h)
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid arguments or configuration.
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: msg, Cause: cause}
}

// NewNotFoundError creates an error for a secret that is not stored.
func NewNotFoundError(id string) *ExitError {
	return &ExitError{Code: ExitNotFound, Message: fmt.Sprintf("secret %q not found", id)}
}

// NewNonInteractiveError creates an error for input that needs a terminal.
func NewNonInteractiveError(msg string) *ExitError {
	return &ExitError{Code: ExitNonInteractive, Message: msg}
}

// NewOperationError wraps a failed store operation, deriving the exit code
// from the error's category.
func NewOperationError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitCodeFor(cause), Message: msg, Cause: cause}
}

// ExitCodeFor maps an error to the exit code keystash reports for it.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var (
		validationErr *kserrors.ValidationError
		configErr     *kserrors.ConfigError
	)
	switch {
	case kserrors.IsSecurity(err):
		return ExitSecurity
	case errors.Is(err, secrets.ErrNoBackend), kserrors.IsIO(err):
		return ExitBackend
	case errors.As(err, &validationErr), errors.As(err, &configErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// HandleExitError prints err and exits with its code. nil is a no-op.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())

	// Check if the error (or any in the chain) implements UserVisibleError
	printUserVisibleSuggestion(err)

	os.Exit(ExitCodeFor(err))
}

// printUserVisibleSuggestion checks if an error implements UserVisibleError
// and prints the suggestion if available.
func printUserVisibleSuggestion(err error) {
	if suggestion := SuggestionFor(err); suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", suggestion)
	}
}

// SuggestionFor returns the first suggestion found in err's chain.
func SuggestionFor(err error) string {
	var userErr kserrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.IsUserVisible() {
		return userErr.Suggestion()
	}
	var validationErr *kserrors.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Suggestion
	}
	return ""
}

func isConfigError(err error) bool {
	var configErr *kserrors.ConfigError
	return errors.As(err, &configErr)
}

func isNoBackend(err error) bool {
	return errors.Is(err, secrets.ErrNoBackend)
}
