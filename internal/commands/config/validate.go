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
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/config"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	shared.JSONResponse
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for problems",
		Long: `Load the configuration and report errors and warnings.

Errors make keystash refuse to run. Warnings flag settings that work but
are probably not what you want, such as an unsealed key file or a
backend that can never be reached.

With --strict, warnings are treated as errors.`,
		Example: `  # Validate configuration
  keystash config validate

  # Fail on warnings too, e.g. in CI
  keystash config validate --strict --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, strict bool) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	result := ValidationResult{JSONResponse: shared.NewJSONResponse("config validate"), Path: path}

	cfg, err := shared.LoadConfig()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Warnings = configWarnings(cfg, runtime.GOOS)
	}
	result.Valid = len(result.Errors) == 0

	failed := !result.Valid || (strict && len(result.Warnings) > 0)
	result.Success = !failed

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		if err := shared.EmitJSON(out, result); err != nil {
			return err
		}
	} else {
		printValidationResult(out, result)
	}

	switch {
	case !result.Valid:
		return shared.NewUsageError("configuration is invalid", nil)
	case failed:
		return shared.NewUsageError("configuration has warnings (strict mode)", nil)
	}
	return nil
}

// configWarnings flags settings that load fine but are likely mistakes.
func configWarnings(cfg *config.Config, goos string) []string {
	var warnings []string

	if slices.Contains(cfg.Backends, config.BackendKeychain) && goos != "darwin" {
		warnings = append(warnings, "The keychain backend is only available on macOS and will be skipped.")
	}

	fileAt := slices.Index(cfg.Backends, config.BackendFile)
	switch {
	case fileAt < 0:
		warnings = append(warnings, "The file backend is disabled. Commands fail when no OS store is reachable.")
	case fileAt < len(cfg.Backends)-1:
		warnings = append(warnings, fmt.Sprintf(
			"The file backend is always available, so %v listed after it are never used.", cfg.Backends[fileAt+1:]))
	}

	if fileAt >= 0 && cfg.Passphrase() == "" {
		warnings = append(warnings, fmt.Sprintf(
			"$%s is not set. New key files are stored unsealed.", cfg.Fallback.PassphraseEnv))
	}

	if cfg.Tracing.Enabled() {
		if cfg.Tracing.Insecure && cfg.Tracing.Exporter != config.ExporterConsole {
			warnings = append(warnings, "Traces are sent to the collector without TLS.")
		}
		if cfg.Tracing.SampleRate == 0 {
			warnings = append(warnings, "tracing.sample_rate is 0, so no spans are exported.")
		}
	}

	return warnings
}

func printValidationResult(w io.Writer, result ValidationResult) {
	if result.Valid {
		fmt.Fprintln(w, shared.RenderOK("Configuration is valid"))
	} else {
		fmt.Fprintln(w, shared.RenderError("Configuration validation failed"))
	}
	fmt.Fprintln(w, shared.Muted.Render(result.Path))
	fmt.Fprintln(w)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, shared.Header.Render("Errors:"))
		for _, err := range result.Errors {
			fmt.Fprintf(w, "  %s %s\n", shared.StatusError.Render(shared.SymbolError), err)
		}
		fmt.Fprintln(w)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, shared.Header.Render("Warnings:"))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s %s\n", shared.StatusWarn.Render(shared.SymbolWarn), warn)
		}
		fmt.Fprintln(w)
	}

	if result.Valid && len(result.Warnings) == 0 {
		fmt.Fprintln(w, "No issues found.")
	}
}
