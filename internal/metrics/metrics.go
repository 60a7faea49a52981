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

// Package metrics exposes Prometheus counters for lifecycle operations and
// health probes.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	probeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkctl_probe_results_total",
			Help: "Total health probe classifications by status",
		},
		[]string{"status"},
	)

	operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkctl_lifecycle_operations_total",
			Help: "Total lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	materializeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkctl_materialize_failures_total",
			Help: "Total failed config or identity file writes by file kind",
		},
		[]string{"file"},
	)

	lastStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zkctl_last_status",
			Help: "Most recent status: 0 not running, 1 running, 2 broken",
		},
	)
)

// RecordProbe counts one status classification.
func RecordProbe(status string, code int) {
	probeResults.WithLabelValues(status).Inc()
	lastStatus.Set(float64(code))
}

// RecordOperation counts one start, stop or status call.
func RecordOperation(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	operations.WithLabelValues(operation, result).Inc()
}

// RecordMaterializeFailure counts a failed write of the config or myid file.
func RecordMaterializeFailure(file string) {
	materializeFailures.WithLabelValues(file).Inc()
}

// WriteTextfile writes every metric in gatherer to path in the text
// exposition format, for the node exporter textfile collector. The write
// goes through a temporary file so readers never see a partial file.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
