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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/keystash/internal/commands/shared"
)

// CommandMetadata describes one command for help --json. Subcommands are
// nested, so "config validate" appears under "config".
type CommandMetadata struct {
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	Short       string            `json:"short"`
	Long        string            `json:"long,omitempty"`
	Usage       string            `json:"usage"`
	Flags       []FlagMetadata    `json:"flags,omitempty"`
	Examples    string            `json:"examples,omitempty"`
	Aliases     []string          `json:"aliases,omitempty"`
	Subcommands []CommandMetadata `json:"subcommands,omitempty"`
}

// FlagMetadata represents metadata about a flag
type FlagMetadata struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Usage     string `json:"usage"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
}

// ExitCodeMetadata documents one process exit code.
type ExitCodeMetadata struct {
	Code    int    `json:"code"`
	Meaning string `json:"meaning"`
}

// HelpResponse is the JSON response for help command
type HelpResponse struct {
	shared.JSONResponse
	Commands    []CommandMetadata  `json:"commands,omitempty"`
	Detail      *CommandMetadata   `json:"detail,omitempty"`
	GlobalFlags []FlagMetadata     `json:"global_flags,omitempty"`
	ExitCodes   []ExitCodeMetadata `json:"exit_codes,omitempty"`
}

var exitCodes = []ExitCodeMetadata{
	{shared.ExitSuccess, "success"},
	{shared.ExitFailure, "unexpected failure"},
	{shared.ExitUsage, "invalid usage, secret id or configuration"},
	{shared.ExitNotFound, "secret not found"},
	{shared.ExitBackend, "no backend available, or a backend I/O failure"},
	{shared.ExitSecurity, "integrity or key failure; do not retry"},
	{shared.ExitNonInteractive, "input required but no terminal"},
}

// NewHelpCommand creates the help command
func NewHelpCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Help provides detailed information about commands and their usage.

Run 'keystash help' to see all available commands.
Run 'keystash help <command>' to see detailed help for a specific command.
Use --json for machine-readable output, including the exit code table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := rootCmd
			if len(args) > 0 {
				found, rest, err := rootCmd.Find(args)
				if err != nil || found == rootCmd || len(rest) > 0 {
					return shared.NewUsageError(fmt.Sprintf("unknown command %q", args[len(args)-1]), nil)
				}
				target = found
			}

			if !shared.GetJSON() {
				return target.Help()
			}

			resp := HelpResponse{
				JSONResponse: shared.NewJSONResponse("help"),
				GlobalFlags:  describeFlags(rootCmd.PersistentFlags()),
			}
			if target == rootCmd {
				resp.Commands = describeChildren(rootCmd)
				resp.ExitCodes = exitCodes
			} else {
				meta := describe(target)
				resp.Detail = &meta
				resp.Command = "help " + meta.Path
			}
			return shared.EmitJSON(cmd.OutOrStdout(), resp)
		},
	}
}

// describe builds metadata for cmd and its visible subcommands. The path
// omits the root command name.
func describe(cmd *cobra.Command) CommandMetadata {
	return CommandMetadata{
		Name:        cmd.Name(),
		Path:        relativePath(cmd),
		Short:       cmd.Short,
		Long:        cmd.Long,
		Usage:       cmd.UseLine(),
		Examples:    cmd.Example,
		Aliases:     cmd.Aliases,
		Flags:       describeFlags(cmd.LocalNonPersistentFlags()),
		Subcommands: describeChildren(cmd),
	}
}

func describeChildren(cmd *cobra.Command) []CommandMetadata {
	var out []CommandMetadata
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		out = append(out, describe(sub))
	}
	return out
}

func relativePath(cmd *cobra.Command) string {
	path := cmd.CommandPath()
	if root := cmd.Root().Name(); len(path) > len(root) {
		return path[len(root)+1:]
	}
	return path
}

// describeFlags lists the visible flags of a flag set.
func describeFlags(fs *pflag.FlagSet) []FlagMetadata {
	var flags []FlagMetadata
	fs.VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden {
			return
		}
		flags = append(flags, FlagMetadata{
			Name:      flag.Name,
			Shorthand: flag.Shorthand,
			Usage:     flag.Usage,
			Type:      flag.Value.Type(),
			Default:   flag.DefValue,
		})
	})
	return flags
}
