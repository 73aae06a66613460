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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	kserrors "github.com/tombee/keystash/pkg/errors"
)

// Result labels for operation metrics.
const (
	resultOK       = "ok"
	resultAbsent   = "absent"
	resultInvalid  = "invalid"
	resultIO       = "io_error"
	resultSecurity = "security_error"
	resultError    = "error"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystash_secret_operations_total",
			Help: "Total secret store operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keystash_secret_operation_duration_seconds",
			Help:    "Duration of secret store operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "op"},
	)

	migratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keystash_secret_migrations_total",
		Help: "Total secrets re-encoded with the current coder",
	})
)

// recordMetrics records metrics for a store operation
func recordMetrics(backend, op string, seconds float64, result string) {
	operationsTotal.WithLabelValues(backend, op, result).Inc()
	operationDuration.WithLabelValues(backend, op).Observe(seconds)
}

// resultOf classifies an operation outcome for metrics labels.
func resultOf(err error, found bool) string {
	switch {
	case err == nil && !found:
		return resultAbsent
	case err == nil:
		return resultOK
	}

	var validationErr *kserrors.ValidationError
	switch {
	case kserrors.As(err, &validationErr):
		return resultInvalid
	case kserrors.IsSecurity(err):
		return resultSecurity
	case kserrors.IsIO(err):
		return resultIO
	default:
		return resultError
	}
}

// WriteMetricsTextfile writes the default registry to path in Prometheus
// text format. The file is replaced atomically, so node_exporter's textfile
// collector never reads a partial write.
func WriteMetricsTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return &kserrors.IOError{Backend: "metrics", Op: "write", Message: path, Cause: err}
	}
	return nil
}
