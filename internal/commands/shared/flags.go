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

// globals holds the persistent flag values bound by the root command.
var globals struct {
	verbose    bool
	quiet      bool
	json       bool
	configPath string
}

// build is stamped by main from -ldflags.
var build = struct {
	version, commit, date string
}{"dev", "unknown", "unknown"}

// RegisterFlagPointers returns the targets for --verbose, --quiet, --json
// and --config, in that order.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &globals.verbose, &globals.quiet, &globals.json, &globals.configPath
}

// SetVersion records build information (called from main)
func SetVersion(v, c, b string) {
	build.version, build.commit, build.date = v, c, b
}

func GetVerbose() bool { return globals.verbose }

func GetQuiet() bool { return globals.quiet }

func GetJSON() bool { return globals.json }

// GetConfigPath returns the --config value; empty means the XDG default.
func GetConfigPath() string { return globals.configPath }

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return build.version, build.commit, build.date
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	globals.verbose, globals.quiet, globals.json, globals.configPath = false, false, false, ""
}

func SetConfigPathForTest(path string) { globals.configPath = path }

func SetJSONForTest(on bool) { globals.json = on }
