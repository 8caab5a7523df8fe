// Package metrics exposes the Prometheus registry the exporter's metrics live in.
// Metrics are defined next to the code that updates them (client, pagination,
// export); this package serves them and documents the set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry; promauto registers into it.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Names lists the exporter's metric families.
var Names = []string{
	"omnivore_requests_total",
	"omnivore_request_duration_seconds",
	"omnivore_errors_total",
	"omnivore_pages_fetched_total",
	"omnivore_items_yielded_total",
	"omnivore_page_error_codes_total",
	"omnivore_items_written_total",
	"omnivore_bytes_written_total",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - omnivore_requests_total{status} (Counter): GraphQL requests by HTTP status ("network_error" on transport failure)
//   - omnivore_request_duration_seconds (Histogram): request duration
//   - omnivore_errors_total{class} (Counter): failures by class (transport, status, decode, graphql)
//
// Traversal Metrics (pkg/pagination):
//   - omnivore_pages_fetched_total (Counter): pages fetched
//   - omnivore_items_yielded_total (Counter): items handed to consumers
//   - omnivore_page_error_codes_total{code} (Counter): errorCodes reported inside pages
//
// Export Metrics (pkg/export):
//   - omnivore_items_written_total{sink} (Counter): items persisted by sink
//   - omnivore_bytes_written_total{sink} (Counter): bytes persisted by sink
//
// Example Prometheus Queries:
//
//   # Items per page actually returned
//   rate(omnivore_items_yielded_total[5m]) / rate(omnivore_pages_fetched_total[5m])
//
//   # Failure rate by class
//   sum by (class) (rate(omnivore_errors_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(omnivore_request_duration_seconds_bucket[5m]))
