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
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/tombee/keystash/internal/commands/shared"
)

// errAborted is returned when the user dismisses a prompt.
var errAborted = errors.New("aborted")

// prompter collects interactive input. Replaced in tests.
type prompter interface {
	// Secret asks for a secret value with hidden input.
	Secret(id string) (string, error)
	// Confirm asks a yes/no question, defaulting to no.
	Confirm(title, description string) (bool, error)
}

var (
	prompts     prompter = huhPrompter{}
	interactive          = func() bool { return !shared.IsNonInteractive() }
)

type huhPrompter struct{}

func (huhPrompter) Secret(id string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Secret value").
				Description("Value for " + id + " (input is hidden)").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("secret value cannot be empty")
					}
					return nil
				}).
				Value(&value),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errAborted
		}
		return "", err
	}
	return value, nil
}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes, delete").
				Negative("No").
				Value(&ok),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
