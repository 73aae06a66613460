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

package tracing

import (
	"io"
	"time"
)

// Exporter names.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp-http"
)

// DefaultExportTimeout bounds a single batch export.
const DefaultExportTimeout = 5 * time.Second

// Config configures a Provider.
type Config struct {
	// Exporter is one of the Exporter constants. Empty means none.
	Exporter string

	// Endpoint is the collector host:port for the OTLP exporters.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// CACertPath is an optional PEM bundle used instead of the system pool.
	CACertPath string

	// Headers are attached to every export request.
	Headers map[string]string

	// SampleRate is the fraction of root spans recorded.
	SampleRate float64

	ServiceName    string
	ServiceVersion string

	// Writer receives console output. Defaults to stderr so stdout stays
	// clean for command output.
	Writer io.Writer

	// ExportTimeout bounds a single batch export.
	ExportTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	if c.ServiceName == "" {
		c.ServiceName = "keystash"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	return c
}
