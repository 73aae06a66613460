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
	"fmt"
	"strings"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

// MaxIDLength is the longest accepted secret id, in bytes.
const MaxIDLength = 512

// reservedIDPrefix marks ids used internally, such as availability probes.
const reservedIDPrefix = "__keystash_"

// ValidateID checks that id can be used as a secret identifier.
//
// Ids are opaque strings. They must be non-empty, at most MaxIDLength bytes
// and free of NUL bytes, which native credential APIs treat as terminators.
func ValidateID(id string) error {
	if id == "" {
		return &kserrors.ValidationError{
			Field:      "id",
			Message:    "secret id must not be empty",
			Suggestion: "Provide a name such as 'db/password'",
		}
	}
	if len(id) > MaxIDLength {
		return &kserrors.ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("secret id is %d bytes, limit is %d", len(id), MaxIDLength),
		}
	}
	if strings.IndexByte(id, 0) >= 0 {
		return &kserrors.ValidationError{
			Field:   "id",
			Message: "secret id must not contain NUL bytes",
		}
	}
	if strings.HasPrefix(id, reservedIDPrefix) {
		return &kserrors.ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("ids starting with %q are reserved", reservedIDPrefix),
		}
	}
	return nil
}
