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

// Error categories reported by ErrorClassifier.
const (
	CategoryIO       = "io"
	CategorySecurity = "security"
)

// UserVisibleError is implemented by errors the CLI can explain. IOError
// and SecurityError implement it so a failed backend reads differently from
// a tampered store.
type UserVisibleError interface {
	error

	IsUserVisible() bool

	// UserMessage is the one-line explanation printed after "Error:".
	UserMessage() string

	// Suggestion is what the user can try next, or "".
	Suggestion() string
}

// ErrorClassifier lets callers decide what to do with a failure without
// matching concrete types. An io error may be retried; a security error
// must not be, since repeating a decode of tampered data cannot succeed.
type ErrorClassifier interface {
	error

	// ErrorType returns CategoryIO or CategorySecurity.
	ErrorType() string

	IsRetryable() bool
}
