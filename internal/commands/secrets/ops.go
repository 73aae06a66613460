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
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/secrets"
)

type setOptions struct {
	backend string
	raw     bool
}

func newSetCommand() *cobra.Command {
	opts := &setOptions{}
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Store a secret",
		Long: `Store a secret under the given id, replacing any previous value.

The value is read from standard input when it is piped, or from a hidden
prompt when running in a terminal. One trailing newline is dropped from
piped input unless --raw is set.

Examples:
  keystash set db/password
  printf '%s' "$TOKEN" | keystash set api/token
  keystash set signing/key --raw < key.bin
  keystash set api/token --backend file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, args[0], opts)
		},
	}

	addBackendFlag(cmd, &opts.backend)
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Store piped input byte for byte")

	return cmd
}

func runSet(cmd *cobra.Command, id string, opts *setOptions) error {
	if err := secrets.ValidateID(id); err != nil {
		return err
	}

	value, err := readSecretValue(cmd.InOrStdin(), id, opts.raw)
	if err != nil {
		return err
	}
	defer clear(value)

	return withStore(cmd, id, opts.backend, func(ctx context.Context, s *session) error {
		if err := s.facade.Set(ctx, id, value); err != nil {
			return shared.NewOperationError("failed to store secret", err)
		}

		if shared.GetJSON() {
			return shared.EmitJSON(s.out(), struct {
				shared.JSONResponse
				ID      string `json:"id"`
				Backend string `json:"backend"`
			}{shared.NewJSONResponse("set"), id, s.facade.Name()})
		}
		s.say("%s", shared.RenderOK(fmt.Sprintf("Stored %q in the %s backend", id, s.facade.Name())))
		return nil
	})
}

// readSecretValue reads a value from piped input, or prompts for one.
func readSecretValue(in io.Reader, id string, raw bool) ([]byte, error) {
	if _, tty := stdinFile(in); !tty {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret value: %w", err)
		}
		if !raw {
			data = trimNewline(data)
		}
		if len(data) == 0 {
			return nil, shared.NewUsageError("secret value cannot be empty", nil)
		}
		return data, nil
	}

	if !interactive() {
		return nil, shared.NewNonInteractiveError("no secret value on standard input; pipe the value in")
	}
	value, err := prompts.Secret(id)
	if err != nil {
		if errors.Is(err, errAborted) {
			return nil, &shared.ExitError{Code: shared.ExitFailure, Message: "canceled"}
		}
		return nil, fmt.Errorf("failed to read secret value: %w", err)
	}
	return []byte(value), nil
}

type getOptions struct {
	backend string
	unmask  bool
	raw     bool
}

func newGetCommand() *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a secret",
		Long: `Retrieve a secret by id.

By default the value is masked. Use --unmask to print it followed by a
newline, or --raw to write the stored bytes exactly, for piping.

Exits with status 3 when the secret does not exist.

Examples:
  keystash get db/password
  keystash get db/password --unmask
  keystash get signing/key --raw > key.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], opts)
		},
	}

	addBackendFlag(cmd, &opts.backend)
	cmd.Flags().BoolVar(&opts.unmask, "unmask", false, "Show full value (not masked)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Write the stored bytes exactly, without masking or newline")

	return cmd
}

func runGet(cmd *cobra.Command, id string, opts *getOptions) error {
	return withStore(cmd, id, opts.backend, func(ctx context.Context, s *session) error {
		value, found, err := s.facade.Get(ctx, id)
		if err != nil {
			return shared.NewOperationError("failed to read secret", err)
		}
		if !found {
			return shared.NewNotFoundError(id)
		}
		defer clear(value)

		switch {
		case opts.raw:
			_, err := s.out().Write(value)
			return err
		case shared.GetJSON():
			resp := struct {
				shared.JSONResponse
				ID      string  `json:"id"`
				Backend string  `json:"backend"`
				Masked  string  `json:"masked"`
				Value   *string `json:"value,omitempty"`
			}{
				JSONResponse: shared.NewJSONResponse("get"),
				ID:           id,
				Backend:      s.facade.Name(),
				Masked:       maskSecret(value),
			}
			if opts.unmask {
				v := string(value)
				resp.Value = &v
			}
			return shared.EmitJSON(s.out(), resp)
		case opts.unmask:
			fmt.Fprintf(s.out(), "%s\n", value)
		default:
			fmt.Fprintf(s.out(), "%s %s\n", shared.Masked.Render(maskSecret(value)), shared.Muted.Render("(use --unmask to show full value)"))
		}
		return nil
	})
}

type hasOptions struct {
	backend string
}

func newHasCommand() *cobra.Command {
	opts := &hasOptions{}
	cmd := &cobra.Command{
		Use:   "has <id>",
		Short: "Check whether a secret exists",
		Long: `Check whether a secret exists without reading it out.

Exits with status 0 when the secret exists and 3 when it does not.

Examples:
  keystash has db/password && echo configured`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHas(cmd, args[0], opts)
		},
	}

	addBackendFlag(cmd, &opts.backend)

	return cmd
}

func runHas(cmd *cobra.Command, id string, opts *hasOptions) error {
	return withStore(cmd, id, opts.backend, func(ctx context.Context, s *session) error {
		found, err := s.facade.Has(ctx, id)
		if err != nil {
			return shared.NewOperationError("failed to check secret", err)
		}

		if shared.GetJSON() {
			// Absence is an answer here, not an error envelope.
			return shared.EmitJSON(s.out(), struct {
				shared.JSONResponse
				ID      string `json:"id"`
				Backend string `json:"backend"`
				Found   bool   `json:"found"`
			}{shared.NewJSONResponse("has"), id, s.facade.Name(), found})
		}
		if !found {
			return shared.NewNotFoundError(id)
		}
		s.say("%s", shared.RenderOK(fmt.Sprintf("%q exists in the %s backend", id, s.facade.Name())))
		return nil
	})
}

type deleteOptions struct {
	backend string
	force   bool
}

func newDeleteCommand() *cobra.Command {
	opts := &deleteOptions{}
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a secret",
		Long: `Remove a secret. Removing a secret that does not exist succeeds.

Requires confirmation unless --force is used. Without a terminal,
--force is mandatory.

Examples:
  keystash delete db/password
  keystash delete db/password --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], opts)
		},
	}

	addBackendFlag(cmd, &opts.backend)
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, id string, opts *deleteOptions) error {
	if err := secrets.ValidateID(id); err != nil {
		return err
	}

	if !opts.force {
		if !interactive() {
			return shared.NewNonInteractiveError("refusing to delete without confirmation; pass --force")
		}
		ok, err := prompts.Confirm(fmt.Sprintf("Delete secret %q?", id), "This cannot be undone.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion canceled")
			return nil
		}
	}

	return withStore(cmd, id, opts.backend, func(ctx context.Context, s *session) error {
		if err := s.facade.Delete(ctx, id); err != nil {
			return shared.NewOperationError("failed to delete secret", err)
		}

		if shared.GetJSON() {
			return shared.EmitJSON(s.out(), struct {
				shared.JSONResponse
				ID      string `json:"id"`
				Backend string `json:"backend"`
			}{shared.NewJSONResponse("delete"), id, s.facade.Name()})
		}
		s.say("%s", shared.RenderOK(fmt.Sprintf("Deleted %q from the %s backend", id, s.facade.Name())))
		return nil
	})
}
