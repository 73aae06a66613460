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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func keepGlobalProvider(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNewProvider_None(t *testing.T) {
	keepGlobalProvider(t)

	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Equal(t, ExporterNone, p.Exporter())

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Console(t *testing.T) {
	keepGlobalProvider(t)
	var buf bytes.Buffer

	p, err := NewProvider(context.Background(), Config{
		Exporter:       ExporterConsole,
		SampleRate:     1,
		ServiceVersion: "1.2.3",
		Writer:         &buf,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	assert.Same(t, p.tp, otel.GetTracerProvider(), "provider is installed globally")

	_, span := p.Tracer("test").Start(context.Background(), "secrets.get")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "secrets.get")
	assert.Contains(t, out, "keystash")
	assert.Contains(t, out, "1.2.3")
}

func TestNewProvider_ZeroSampleRateDropsRootSpans(t *testing.T) {
	keepGlobalProvider(t)
	var buf bytes.Buffer

	p, err := NewProvider(context.Background(), Config{
		Exporter:   ExporterConsole,
		SampleRate: 0,
		Writer:     &buf,
	})
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want sdktrace.SamplingDecision
	}{
		{1, sdktrace.RecordAndSample},
		{2, sdktrace.RecordAndSample},
		{0, sdktrace.Drop},
		{-1, sdktrace.Drop},
	}

	for _, tt := range tests {
		result := newSampler(tt.rate).ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       trace.TraceID{1},
			Name:          "x",
		})
		assert.Equal(t, tt.want, result.Decision, "rate %v", tt.rate)
	}
}

func TestNewProvider_OTLP(t *testing.T) {
	for _, exporter := range []string{ExporterOTLP, ExporterOTLPHTTP} {
		t.Run(exporter, func(t *testing.T) {
			keepGlobalProvider(t)

			p, err := NewProvider(context.Background(), Config{
				Exporter:      exporter,
				Endpoint:      "127.0.0.1:1",
				Insecure:      true,
				Headers:       map[string]string{"x-api-key": "k"},
				ExportTimeout: 100 * time.Millisecond,
			})
			require.NoError(t, err)
			assert.Equal(t, exporter, p.Exporter())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown exporter", Config{Exporter: "zipkin"}, "unknown exporter"},
		{"otlp without endpoint", Config{Exporter: ExporterOTLP}, "requires an endpoint"},
		{"otlp-http without endpoint", Config{Exporter: ExporterOTLPHTTP}, "requires an endpoint"},
		{"missing CA", Config{Exporter: ExporterOTLP, Endpoint: "c:4317", CACertPath: "/nonexistent/ca.pem"}, "CA certificate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
