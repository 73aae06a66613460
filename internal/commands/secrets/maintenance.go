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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/secrets"
)

func newMigrateCommand() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Re-encode stored secrets with the current coder",
		Long: fmt.Sprintf(`Re-encode every secret in the file store that was written with a coder
other than the configured one (fallback.coder or KEYSTASH_CODER).

Available coders: %s

Secrets that cannot be decoded are reported and left untouched; the rest
are still migrated. Native backends have nothing to migrate.

Examples:
  KEYSTASH_CODER=chacha20-poly1305 keystash migrate --backend file`, strings.Join(coderNames(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, "", backend, func(ctx context.Context, s *session) error {
				n, err := s.facade.Migrate(ctx)

				if shared.GetJSON() && err == nil {
					return shared.EmitJSON(s.out(), struct {
						shared.JSONResponse
						Backend  string `json:"backend"`
						Migrated int    `json:"migrated"`
					}{shared.NewJSONResponse("migrate"), s.facade.Name(), n})
				}
				if n > 0 || err == nil {
					s.say("%s", shared.RenderOK(fmt.Sprintf("Migrated %d secret(s) in the %s backend", n, s.facade.Name())))
				}
				if err != nil {
					return shared.NewOperationError("migration incomplete", err)
				}
				return nil
			})
		},
	}

	addBackendFlag(cmd, &backend)

	return cmd
}

type watchOptions struct {
	backend string
	count   int
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Print a line each time a secret changes",
		Long: `Watch a secret and print one line per change until interrupted.

Only the file backend with the dir driver supports watching. Values are
never printed, only the id, time and whether the secret was removed.

Examples:
  keystash watch api/token --backend file
  keystash watch api/token --json --count 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	addBackendFlag(cmd, &opts.backend)
	cmd.Flags().IntVar(&opts.count, "count", 0, "Exit after this many changes (0 watches until interrupted)")

	return cmd
}

func runWatch(cmd *cobra.Command, id string, opts *watchOptions) error {
	if err := secrets.ValidateID(id); err != nil {
		return err
	}

	return withStore(cmd, id, opts.backend, func(ctx context.Context, s *session) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		changes, err := s.facade.Watch(ctx, id)
		if err != nil {
			if errors.Is(err, secrets.ErrWatchUnsupported) {
				return shared.NewUsageError(fmt.Sprintf("the %s backend cannot be watched", s.facade.Name()), err)
			}
			return shared.NewOperationError("failed to watch secret", err)
		}

		s.say("Watching %q in the %s backend", id, s.facade.Name())

		seen := 0
		for change := range changes {
			if err := printChange(s, change); err != nil {
				return err
			}
			seen++
			if opts.count > 0 && seen >= opts.count {
				return nil
			}
		}
		return nil
	})
}

func printChange(s *session, change secrets.SecretChange) error {
	if shared.GetJSON() {
		return shared.EmitJSON(s.out(), struct {
			ID        string    `json:"id"`
			Timestamp time.Time `json:"timestamp"`
			Deleted   bool      `json:"deleted"`
		}{change.ID, change.Timestamp, change.Deleted})
	}

	what := shared.RenderOK("updated")
	if change.Deleted {
		what = shared.RenderWarn("deleted")
	}
	_, err := fmt.Fprintf(s.out(), "%s %s %s\n",
		shared.Muted.Render(change.Timestamp.Format(time.RFC3339)), change.ID, what)
	return err
}
