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


package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/completion"
	configcmd "github.com/tombee/keystash/internal/commands/config"
	"github.com/tombee/keystash/internal/commands/secrets"
	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/commands/version"
)

const (
	groupSecrets = "secrets"
	groupTooling = "tooling"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the keystash command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystash",
		Short: "keystash - store secrets in the platform credential store",
		Long: `keystash stores small secrets (passwords, tokens, keys) under string ids.

Secrets go to the first available backend, in configured order:
  1. keychain   macOS Keychain
  2. keyring    Secret Service, Windows Credential Manager
  3. file       encrypted files under ~/.config/keystash/store

Run 'keystash status' to see which backend is in use.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	registerGlobalFlags(cmd)

	cmd.AddGroup(
		&cobra.Group{ID: groupSecrets, Title: "Secret commands:"},
		&cobra.Group{ID: groupTooling, Title: "Tooling:"},
	)
	for _, sub := range secrets.NewCommands() {
		sub.GroupID = groupSecrets
		cmd.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{
		configcmd.NewCommand(),
		version.NewCommand(),
		completion.NewCommand(),
	} {
		sub.GroupID = groupTooling
		cmd.AddCommand(sub)
	}

	cmd.SetHelpCommand(NewHelpCommand(cmd))
	cmd.SetHelpCommandGroupID(groupTooling)

	return cmd
}

func registerGlobalFlags(cmd *cobra.Command) {
	verbose, quiet, jsonOut, cfgPath := shared.RegisterFlagPointers()

	pf := cmd.PersistentFlags()
	pf.BoolVarP(verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	pf.BoolVar(jsonOut, "json", false, "Output in JSON format")
	pf.StringVar(cfgPath, "config", "", "Path to config file (default: ~/.config/keystash/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
