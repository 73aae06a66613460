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


package shared

import (
	"context"
	"io"
	"log/slog"

	"github.com/tombee/keystash/internal/config"
	"github.com/tombee/keystash/internal/log"
	"github.com/tombee/keystash/internal/secrets"
	"github.com/tombee/keystash/internal/tracing"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// LoadConfig loads configuration from --config, or the XDG default.
func LoadConfig() (*config.Config, error) {
	return config.Load(GetConfigPath())
}

// NewLogger builds the CLI logger. --verbose forces debug and --quiet
// forces error; otherwise the configured level applies.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Output = w
	logCfg.Level = cfg.Log.Level
	logCfg.Format = log.Format(cfg.Log.Format)

	switch {
	case GetVerbose():
		logCfg.Level = "debug"
	case GetQuiet():
		logCfg.Level = "error"
	}
	return log.New(logCfg)
}

// Runtime is everything a store command needs: config, logger, the
// tracing provider and the opened facade.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger
	Facade *secrets.Facade
	Tracer *tracing.Provider
}

// OpenStore loads config, optionally narrows the backend list to one
// backend, starts tracing and opens the facade. Callers must Close the
// result.
func OpenStore(ctx context.Context, backend string, stderr io.Writer) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backends = []string{backend}
		if err := cfg.Validate(); err != nil {
			return nil, NewUsageError("invalid --backend", err)
		}
	}

	logger := NewLogger(cfg, stderr)

	version, _, _ := GetVersion()
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		CACertPath:     cfg.Tracing.CACert,
		Headers:        cfg.Tracing.Headers,
		SampleRate:     cfg.Tracing.SampleRate,
		ServiceVersion: version,
		Writer:         stderr,
	})
	if err != nil {
		return nil, &kserrors.ConfigError{Key: "tracing", Reason: err.Error(), Cause: err}
	}

	facade, err := secrets.Open(cfg, logger, secrets.WithTracerProvider(tp))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return &Runtime{Config: cfg, Logger: logger, Facade: facade, Tracer: tp}, nil
}

// Close releases the store, flushes spans and writes the metrics textfile
// when one is configured. Flush and metrics failures are logged only.
func (r *Runtime) Close() error {
	err := r.Facade.Close()

	ctx, cancel := context.WithTimeout(context.Background(), tracing.DefaultExportTimeout)
	defer cancel()
	if shutdownErr := r.Tracer.Shutdown(ctx); shutdownErr != nil {
		r.Logger.Warn("failed to flush traces", "error", shutdownErr)
	}

	if path := r.Config.Metrics.Textfile; path != "" {
		if metricsErr := secrets.WriteMetricsTextfile(path); metricsErr != nil {
			r.Logger.Warn("failed to write metrics textfile", "path", path, "error", metricsErr)
		}
	}
	return err
}
