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
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tombee/keystash/internal/commands/shared"
	"github.com/tombee/keystash/internal/config"
	"github.com/tombee/keystash/internal/secrets"
	"github.com/tombee/keystash/pkg/coder"
)

type backendStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
}

type fileStatus struct {
	Dir       string         `json:"dir"`
	Driver    string         `json:"driver"`
	Coder     string         `json:"coder"`
	KeyFile   string         `json:"key_file"`
	Sealed    bool           `json:"sealed"`
	Inventory map[string]int `json:"inventory"`
	// Stale counts blobs written with a coder other than the current one.
	Stale int    `json:"stale"`
	Error string `json:"error,omitempty"`
}

type statusReport struct {
	shared.JSONResponse
	ConfigPath string          `json:"config_path"`
	Account    string          `json:"account"`
	Selected   string          `json:"selected"`
	Backends   []backendStatus `json:"backends"`
	File       *fileStatus     `json:"file,omitempty"`
}

func newStatusCommand() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend availability and store details",
		Long: `Probe each configured backend in order and show which one is used.

When the file backend is configured, also show its directory, storage
driver, current coder, whether its key file is passphrase-sealed, and how
many secrets are stored under each coder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, "", backend, func(ctx context.Context, s *session) error {
				report, err := buildStatus(ctx, s)
				if err != nil {
					return err
				}
				if shared.GetJSON() {
					return shared.EmitJSON(s.out(), report)
				}
				printStatus(s, report)
				return nil
			})
		},
	}

	addBackendFlag(cmd, &backend)

	return cmd
}

func buildStatus(ctx context.Context, s *session) (*statusReport, error) {
	configPath := shared.GetConfigPath()
	if configPath == "" {
		path, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = path
	}

	report := &statusReport{
		JSONResponse: shared.NewJSONResponse("status"),
		ConfigPath:   configPath,
		Account:      s.cfg.Account,
		Selected:     s.facade.Name(),
	}

	for _, store := range s.facade.Selector().Candidates() {
		report.Backends = append(report.Backends, backendStatus{
			Name:      store.Name(),
			Available: store.Available(),
			Selected:  store.Name() == report.Selected,
		})

		if fs, ok := store.(*secrets.FileStore); ok {
			report.File = fileReport(ctx, fs)
		}
	}
	return report, nil
}

// fileReport describes the fallback store. Failures are reported inline so
// status stays useful when the key file cannot be opened.
func fileReport(ctx context.Context, fs *secrets.FileStore) *fileStatus {
	st := &fileStatus{
		Dir:       fs.Dir(),
		Driver:    fs.Driver(),
		Coder:     fs.Coder().String(),
		KeyFile:   fs.KeyFile().Path(),
		Inventory: map[string]int{},
	}

	sealed, err := fs.KeyFile().Sealed()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Sealed = sealed

	counts, err := fs.Inventory(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	for id, n := range counts {
		st.Inventory[id.String()] = n
		if id != fs.Coder() {
			st.Stale += n
		}
	}
	return st
}

func printStatus(s *session, r *statusReport) {
	out := s.out()
	fmt.Fprintln(out, shared.Header.Render("Backends"))
	for _, b := range r.Backends {
		fmt.Fprintln(out, shared.RenderBackend(b.Name, b.Available, b.Selected))
	}
	if r.Selected == "none" {
		fmt.Fprintln(out, shared.RenderError("No backend available"))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, shared.RenderLabel("config", r.ConfigPath))
	fmt.Fprintln(out, shared.RenderLabel("account", r.Account))

	if r.File == nil {
		return
	}
	f := r.File
	fmt.Fprintln(out)
	fmt.Fprintln(out, shared.Header.Render("File store"))
	fmt.Fprintln(out, shared.RenderLabel("dir", f.Dir))
	fmt.Fprintln(out, shared.RenderLabel("driver", f.Driver))
	fmt.Fprintln(out, shared.RenderLabel("coder", f.Coder))
	fmt.Fprintln(out, shared.RenderLabel("key file", f.KeyFile))
	if f.Error != "" {
		fmt.Fprintln(out, shared.RenderError(f.Error))
		return
	}
	fmt.Fprintln(out, shared.RenderLabel("sealed", fmt.Sprintf("%t", f.Sealed)))

	names := make([]string, 0, len(f.Inventory))
	for name := range f.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(out, shared.RenderLabel("  "+name, fmt.Sprintf("%d", f.Inventory[name])))
	}
	if f.Stale > 0 {
		fmt.Fprintln(out, shared.RenderWarn(fmt.Sprintf("%d secret(s) use an older coder; run 'keystash migrate'", f.Stale)))
	}
}

// coderNames lists the configurable coders for help text.
func coderNames() []string {
	var names []string
	for _, id := range coder.IDs() {
		names = append(names, id.String())
	}
	return names
}
