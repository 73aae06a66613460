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

// Error codes carried in JSON error envelopes. The ranges mirror the exit
// codes so scripts can switch on either.
const (
	// Input errors (E001-E099)
	ErrorCodeInvalidID    = "E001" // Secret id failed validation
	ErrorCodeMissingInput = "E002" // No secret value supplied
	ErrorCodeInvalidInput = "E003" // Malformed arguments

	// Lookup errors (E100-E199)
	ErrorCodeNotFound = "E101" // Secret not stored

	// Backend errors (E200-E299)
	ErrorCodeNoBackend = "E201" // No backend available
	ErrorCodeBackendIO = "E202" // Backend I/O failure

	// Security errors (E300-E399)
	ErrorCodeIntegrity = "E301" // Integrity, tag or key failure

	// Configuration errors (E400-E499)
	ErrorCodeInvalidConfig = "E401" // Invalid configuration

	ErrorCodeInternal = "E500" // Anything else
)

// ErrorCodeFor maps an error to its JSON error code.
func ErrorCodeFor(err error) string {
	switch ExitCodeFor(err) {
	case ExitUsage:
		if isConfigError(err) {
			return ErrorCodeInvalidConfig
		}
		return ErrorCodeInvalidID
	case ExitNotFound:
		return ErrorCodeNotFound
	case ExitBackend:
		if isNoBackend(err) {
			return ErrorCodeNoBackend
		}
		return ErrorCodeBackendIO
	case ExitSecurity:
		return ErrorCodeIntegrity
	case ExitNonInteractive:
		return ErrorCodeMissingInput
	default:
		return ErrorCodeInternal
	}
}
