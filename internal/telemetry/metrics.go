// Package telemetry provides logging setup and Prometheus metrics for macwatch.
//
// All metrics are registered against the default Prometheus registry and are
// served by `macwatch serve` at GET /metrics.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route pattern)
//   - Registry ingestion row and feed counters
//   - Scan cycle counters and the size of the last scan
//   - Organization lookups and connected event stream clients
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by the ServeMux route pattern rather than the raw
// URL so MAC addresses and device names never become label values.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macwatch_http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macwatch_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Registry ingestion metrics.
//
// RegistryRowsTotal counts feed rows by class and outcome
// ("accepted", "skipped", "placeholder").
//
// RegistryIngestsTotal counts ingest runs by class and result
// ("ingested", "unchanged", "error").
var (
	RegistryRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macwatch_registry_rows_total",
			Help: "Total number of registry feed rows processed, by assignment class and outcome.",
		},
		[]string{"class", "outcome"},
	)

	RegistryIngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macwatch_registry_ingests_total",
			Help: "Total number of registry feed ingest runs, by assignment class and result.",
		},
		[]string{"class", "result"},
	)
)

// Scan metrics.
var (
	ScanCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macwatch_scan_cycles_total",
			Help: "Total number of scan cycles, by result.",
		},
		[]string{"result"},
	)

	ScanDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macwatch_scan_devices",
			Help: "Number of devices present in the most recent scan cycle.",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "macwatch_scan_duration_seconds",
			Help:    "Duration of a complete scan cycle, discovery plus recording.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ResolveLookupsTotal counts organization lookups by result ("match", "none").
var ResolveLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "macwatch_resolve_lookups_total",
		Help: "Total number of organization lookups, by result.",
	},
	[]string{"result"},
)

// EventClients tracks the number of connected server-sent event clients.
var EventClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "macwatch_event_clients",
		Help: "Current number of connected event stream clients.",
	},
)
