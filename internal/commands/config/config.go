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

// Package config implements the keystash config command group.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/config"
)

// NewCommand creates the config command with subcommands
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and check configuration",
		Long: `View and check the keystash configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show the config file location
  validate - Check the configuration for problems`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after defaults, the config file and
environment overrides are applied.

Tracing header values are masked.`,
		Args: cobra.NoArgs,
		RunE: runShow,
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the config file location",
		Args:  cobra.NoArgs,
		RunE:  runPath,
	}
}

// showResponse is the JSON form of config show.
type showResponse struct {
	shared.JSONResponse
	Path   string         `json:"path"`
	Exists bool           `json:"exists"`
	Config map[string]any `json:"config"`
}

func runShow(cmd *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	masked := maskSensitiveConfig(cfg)
	exists := fileExists(path)

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		// Round-trip through YAML so JSON keys match the config file.
		doc, err := yaml.Marshal(masked)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		var m map[string]any
		if err := yaml.Unmarshal(doc, &m); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return shared.EmitJSON(out, showResponse{
			JSONResponse: shared.NewJSONResponse("config show"),
			Path:         path,
			Exists:       exists,
			Config:       m,
		})
	}
	return outputYAML(out, path, exists, masked)
}

func runPath(cmd *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Path   string `json:"path"`
			Exists bool   `json:"exists"`
		}{shared.NewJSONResponse("config path"), path, fileExists(path)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// configPath is --config when given, else the XDG default.
func configPath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return p, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// maskSensitiveConfig returns a copy of cfg with header values masked.
// Collector headers commonly carry API keys.
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	if len(cfg.Tracing.Headers) > 0 {
		masked.Tracing.Headers = make(map[string]string, len(cfg.Tracing.Headers))
		for k, v := range cfg.Tracing.Headers {
			masked.Tracing.Headers[k] = maskValue(v)
		}
	}
	return &masked
}

// maskValue masks a credential for display
func maskValue(v string) string {
	if v == "" {
		return ""
	}

	// Environment variable references are not secret
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return v
	}

	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}

func outputYAML(w io.Writer, path string, exists bool, cfg *config.Config) error {
	source := path
	if !exists {
		source += " (not found, showing defaults)"
	}
	fmt.Fprintln(w, shared.RenderLabel("Configuration", source))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}
