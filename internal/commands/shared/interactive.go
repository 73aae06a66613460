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
	"os"
	"strconv"

	"golang.org/x/term"
)

// NonInteractiveEnv forces non-interactive mode when set to a true value.
const NonInteractiveEnv = "KEYSTASH_NON_INTERACTIVE"

// ciMarkers are variables CI systems set. A marker with anyValue counts
// whenever it is non-empty; the rest must parse as true.
var ciMarkers = []struct {
	name     string
	anyValue bool
}{
	{name: "CI"},
	{name: "GITHUB_ACTIONS"},
	{name: "GITLAB_CI"},
	{name: "CIRCLECI"},
	{name: "BUILDKITE"},
	{name: "TF_BUILD"},
	{name: "JENKINS_HOME", anyValue: true},
}

// IsNonInteractive reports whether keystash must not prompt.
func IsNonInteractive() bool {
	return NonInteractiveReason() != ""
}

// NonInteractiveReason names why prompting is disabled, or returns "" when
// a prompt may be shown.
func NonInteractiveReason() string {
	if envTrue(os.Getenv(NonInteractiveEnv)) {
		return "$" + NonInteractiveEnv + " is set"
	}
	for _, m := range ciMarkers {
		v := os.Getenv(m.name)
		if (m.anyValue && v != "") || envTrue(v) {
			return "running in CI ($" + m.name + ")"
		}
	}
	if !IsTerminal(os.Stdin) {
		return "stdin is not a terminal"
	}
	return ""
}

func envTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
