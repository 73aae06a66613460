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
Package tracing sets up OpenTelemetry span export for keystash.

The secrets facade opens a span per store operation. This package decides
where those spans go: nowhere (the default), the console, or an OTLP
collector over gRPC or HTTP.

	provider, err := tracing.NewProvider(ctx, tracing.Config{
	    Exporter:    "otlp",
	    Endpoint:    "collector:4317",
	    ServiceName: "keystash",
	})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	facade, err := secrets.Open(cfg, logger, secrets.WithTracerProvider(provider))

Spans carry the secret id, backend and result. Payloads never reach them.
*/
package tracing
