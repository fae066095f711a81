// Package metrics provides the centralized Prometheus registry for the page
// loader. All metrics are defined in the packages that emit them (loader,
// queue) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the page loader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Queue Metrics (pkg/queue):
//   - pageloader_queue_depth{queue} (Gauge): Pending tasks per serial queue
//   - pageloader_queue_tasks_total{queue, outcome} (Counter): Completed tasks by outcome (ok, cancelled, error)
//
// Load Cycle Metrics (pkg/loader):
//   - pageloader_load_cycles_total{intent, status} (Counter): Completed cycles by intent and status
//   - pageloader_load_cycle_duration_seconds{intent} (Histogram): Cycle duration by intent
//   - pageloader_fetched_items_total (Counter): Items fetched from sources
//   - pageloader_chunk_fanout_size (Histogram): Sub-windows per chunked load
//
// Store Metrics (pkg/redisstore):
//   - pageloader_redisstore_errors_total{operation} (Counter): Redis store failures by operation
//
// Example Prometheus Queries:
//
//   # Cycle Error Rate
//   sum(rate(pageloader_load_cycles_total{status="error"}[5m])) /
//   sum(rate(pageloader_load_cycles_total[5m]))
//
//   # P95 Cycle Latency
//   histogram_quantile(0.95, rate(pageloader_load_cycle_duration_seconds_bucket[5m]))
//
//   # Stuck Queues
//   pageloader_queue_depth > 0
