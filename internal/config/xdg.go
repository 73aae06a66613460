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

package config

import (
	"os"
	"path/filepath"
)

const appName = "keystash"

// baseDir resolves the XDG config directory without creating it.
// On Unix and macOS: ~/.config/keystash (macOS follows XDG too).
// Respects XDG_CONFIG_HOME.
func baseDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigDir returns the XDG config directory for keystash, creating it
// with 0700 permissions if needed.
func ConfigDir() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	return dir, nil
}

// ConfigPath returns the full path to the config file. The file itself
// may not exist.
func ConfigPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultStoreDir returns the default fallback store directory. It is
// created by the store on first write, not here.
func DefaultStoreDir() string {
	dir, err := baseDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "store")
	}
	return filepath.Join(dir, "store")
}
