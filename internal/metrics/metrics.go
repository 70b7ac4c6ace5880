// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus counters recorded by conversions, the
// text cache, and the query service. Metrics live in their own registry and
// are written out in text format on request (see WriteTextfile), since the
// CLI is short-lived and exposes no scrape endpoint.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every textbridge metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ConversionsTotal counts per-item conversions by domain, direction
	// (encode/decode) and status (ok/error).
	ConversionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textbridge_conversions_total",
			Help: "Total number of file conversions",
		},
		[]string{"domain", "direction", "status"},
	)

	// ConversionDuration measures per-item conversion time.
	ConversionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textbridge_conversion_duration_seconds",
			Help:    "Duration of single-file conversions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"domain", "direction"},
	)

	// BatchesTotal counts batch runs by kind (forward/reverse) and mode.
	BatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textbridge_batches_total",
			Help: "Total number of batch runs",
		},
		[]string{"kind", "mode"},
	)

	// CacheLookupsTotal counts text cache lookups by result (hit/miss).
	CacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textbridge_text_cache_lookups_total",
			Help: "Total number of PDF text cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictionsTotal counts entries dropped for capacity.
	CacheEvictionsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "textbridge_text_cache_evictions_total",
			Help: "Total number of PDF text cache evictions",
		},
	)

	// QueriesTotal counts completion requests by status (ok or the error kind).
	QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textbridge_queries_total",
			Help: "Total number of completion API requests",
		},
		[]string{"status"},
	)

	// QueryTokensTotal accumulates token usage reported by the completion API.
	QueryTokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textbridge_query_tokens_total",
			Help: "Total tokens reported by the completion API",
		},
		[]string{"kind"},
	)
)

// WriteTextfile writes the current state of Registry to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
