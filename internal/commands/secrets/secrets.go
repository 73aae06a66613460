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


// Package secrets implements the keystash secret commands.
package secrets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/completion"
	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/config"
	"github.com/tombee/keystash/internal/log"
	"github.com/tombee/keystash/internal/secrets"
)

// NewCommands returns the secret commands registered on the root command.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		newSetCommand(),
		newGetCommand(),
		newHasCommand(),
		newDeleteCommand(),
		newStatusCommand(),
		newMigrateCommand(),
		newWatchCommand(),
	}
}

// session is an open store plus the context one command runs with.
type session struct {
	cmd    *cobra.Command
	facade *secrets.Facade
	cfg    *config.Config
	logger *slog.Logger
}

// withStore opens the store, runs fn under the command logging middleware,
// and reports failures as JSON when --json is set.
func withStore(cmd *cobra.Command, id, backend string, fn func(ctx context.Context, s *session) error) error {
	run := func() error {
		rt, err := shared.OpenStore(cmd.Context(), backend, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		s := &session{cmd: cmd, facade: rt.Facade, cfg: rt.Config, logger: rt.Logger}
		return log.NewCommandMiddleware(rt.Logger).Handler(cmd.Context(), &log.CommandRun{
			Command:  cmd.CommandPath(),
			SecretID: id,
			Backend:  backend,
		}, func() error {
			return fn(cmd.Context(), s)
		})
	}

	err := run()
	if err != nil && shared.GetJSON() {
		_ = shared.EmitJSONError(cmd.OutOrStdout(), cmd.Name(), err)
	}
	return err
}

func (s *session) out() io.Writer { return s.cmd.OutOrStdout() }

// say prints a human status line unless --quiet or --json is set.
func (s *session) say(format string, args ...any) {
	if shared.GetQuiet() || shared.GetJSON() {
		return
	}
	fmt.Fprintf(s.out(), format+"\n", args...)
}

func addBackendFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "backend", "",
		fmt.Sprintf("Use only this backend (%s, %s, %s)", config.BackendKeychain, config.BackendKeyring, config.BackendFile))
	_ = cmd.RegisterFlagCompletionFunc("backend", completion.CompleteBackends)
}

// maskSecret masks a payload for display. Binary payloads are summarized.
func maskSecret(value []byte) string {
	if !utf8.Valid(value) {
		return fmt.Sprintf("<%d bytes>", len(value))
	}
	if utf8.RuneCount(value) <= 8 {
		return "****"
	}
	runes := []rune(string(value))
	// Show first 4 and last 4 characters
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}

// trimNewline drops one trailing line ending, as left by echo or a heredoc.
func trimNewline(value []byte) []byte {
	value = bytes.TrimSuffix(value, []byte("\n"))
	return bytes.TrimSuffix(value, []byte("\r"))
}

// stdinFile returns in as a terminal-capable file when it is one.
func stdinFile(in io.Reader) (*os.File, bool) {
	f, ok := in.(*os.File)
	return f, ok && shared.IsTerminal(f)
}
