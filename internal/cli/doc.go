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


/*
Package cli provides the root command for keystash.

This package creates the Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	keystash
	├── set        Store a secret
	├── get        Retrieve a secret
	├── has        Check whether a secret exists
	├── delete     Remove a secret
	├── status     Show backend availability and store details
	├── migrate    Re-encode stored secrets with the current coder
	├── watch      Print a line each time a secret changes
	├── config     Show, locate or validate configuration
	│   ├── show
	│   ├── path
	│   └── validate
	├── version    Show version
	├── completion Generate shell completion scripts
	└── help       Show help

# Global Flags

	--verbose, -v    Enable debug logging
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Exit Codes

  - 0: Success
  - 1: General error
  - 2: Invalid usage, id or configuration
  - 3: Secret not found
  - 4: No backend available, or a backend failed
  - 5: Integrity or key failure
  - 70: Input required but no terminal

Use HandleExitError for consistent error handling:

	if err := cmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}
*/
package cli
