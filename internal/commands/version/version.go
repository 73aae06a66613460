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


package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/pkg/coder"
)

// VersionInfo contains version metadata
type VersionInfo struct {
	shared.JSONResponse
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Coders    []string `json:"coders"`
	Default   string   `json:"default_coder"`
}

// NewCommand creates the version command
func NewCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, build date and supported coders for keystash.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, short)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

// buildInfo returns the ldflags values, falling back to module and VCS
// data embedded by the Go toolchain for binaries built with go install.
func buildInfo() (string, string, string) {
	v, c, b := shared.GetVersion()
	if v != "dev" {
		return v, c, b
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v, c, b
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			c = setting.Value
		case "vcs.time":
			b = setting.Value
		}
	}
	return v, c, b
}

func currentInfo() VersionInfo {
	v, c, b := buildInfo()

	info := VersionInfo{
		JSONResponse: shared.NewJSONResponse("version"),
		Version:      v,
		Commit:       c,
		BuildDate:    b,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
	for _, id := range coder.IDs() {
		info.Coders = append(info.Coders, id.String())
	}
	info.Default = coder.Default.String()
	return info
}

func runVersion(cmd *cobra.Command, short bool) error {
	info := currentInfo()

	switch {
	case short && !shared.GetJSON():
		fmt.Fprintln(cmd.OutOrStdout(), info.Version)
		return nil
	case shared.GetJSON():
		return shared.EmitJSON(cmd.OutOrStdout(), info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "keystash version %s\n", info.Version)
	fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
	fmt.Fprintf(out, "  build date: %s\n", info.BuildDate)
	fmt.Fprintf(out, "  go:         %s (%s)\n", info.GoVersion, info.Platform)
	fmt.Fprintf(out, "  coders:     %v (default %s)\n", info.Coders, info.Default)

	return nil
}
