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
	"testing"
)

var interactiveEnv = []string{
	"KEYSTASH_NON_INTERACTIVE",
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"BUILDKITE",
	"TF_BUILD",
	"JENKINS_HOME",
}

func clearInteractiveEnv(t *testing.T) {
	t.Helper()
	for _, key := range interactiveEnv {
		t.Setenv(key, "")
	}
}

func TestIsNonInteractive(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		reason  string
	}{
		{"explicit opt-out", map[string]string{"KEYSTASH_NON_INTERACTIVE": "true"}, "$KEYSTASH_NON_INTERACTIVE is set"},
		{"explicit opt-out as 1", map[string]string{"KEYSTASH_NON_INTERACTIVE": "1"}, "$KEYSTASH_NON_INTERACTIVE is set"},
		{"CI=true", map[string]string{"CI": "true"}, "running in CI ($CI)"},
		{"CI=1", map[string]string{"CI": "1"}, "running in CI ($CI)"},
		{"GITHUB_ACTIONS", map[string]string{"GITHUB_ACTIONS": "true"}, "running in CI ($GITHUB_ACTIONS)"},
		{"GITLAB_CI", map[string]string{"GITLAB_CI": "true"}, "running in CI ($GITLAB_CI)"},
		{"CIRCLECI", map[string]string{"CIRCLECI": "true"}, "running in CI ($CIRCLECI)"},
		{"JENKINS_HOME set to path", map[string]string{"JENKINS_HOME": "/var/jenkins"}, "running in CI ($JENKINS_HOME)"},
		{"TF_BUILD", map[string]string{"TF_BUILD": "True"}, "running in CI ($TF_BUILD)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearInteractiveEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			if !IsNonInteractive() {
				t.Error("IsNonInteractive() = false, expected true")
			}
			if got := NonInteractiveReason(); got != tt.reason {
				t.Errorf("NonInteractiveReason() = %q, expected %q", got, tt.reason)
			}
		})
	}
}

func TestIsNonInteractive_FalseValuesIgnored(t *testing.T) {
	clearInteractiveEnv(t)
	t.Setenv("CI", "false")
	t.Setenv(NonInteractiveEnv, "no")

	reason := NonInteractiveReason()
	if reason != "" && reason != "stdin is not a terminal" {
		t.Errorf("NonInteractiveReason() = %q", reason)
	}
}

func TestIsNonInteractive_FollowsStdin(t *testing.T) {
	clearInteractiveEnv(t)

	want := !IsTerminal(os.Stdin)
	if got := IsNonInteractive(); got != want {
		t.Errorf("IsNonInteractive() = %v, expected %v", got, want)
	}
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil is not a terminal")
	}
}
