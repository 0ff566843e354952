// Package metrics exposes the Prometheus collectors shared by the sync layer,
// the REST client and the reference server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "pulsegrid"

	syncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "operations_total",
			Help:      "Total number of sync layer operations by outcome",
		},
		[]string{"operation", "result"},
	)

	syncOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "operation_duration_seconds",
			Help:      "Duration of sync layer backend calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	syncStaleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "stale_responses_total",
			Help:      "Total number of responses discarded because a newer mutation was issued for the same cell",
		},
		[]string{"operation"},
	)

	syncRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "retries_total",
			Help:      "Total number of retried backend calls",
		},
		[]string{"operation"},
	)

	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of table API requests by method and status code",
		},
		[]string{"method", "code"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of table API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	serverRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	serverRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Duration of served HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	importedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of rows processed by bulk import",
		},
		[]string{"result"},
	)
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func RecordSyncOperation(operation, result string, duration time.Duration) {
	syncOperationsTotal.WithLabelValues(operation, result).Inc()
	syncOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordStaleResponse(operation string) {
	syncStaleTotal.WithLabelValues(operation).Inc()
}

func RecordRetry(operation string) {
	syncRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordClientRequest records one table API call. code is 0 when the request
// never produced a response.
func RecordClientRequest(method string, code int, duration time.Duration) {
	clientRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	clientRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RecordServerRequest(method, route string, code int, duration time.Duration) {
	serverRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	serverRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordImportedRow(err error) {
	importedRowsTotal.WithLabelValues(ResultOf(err)).Inc()
}
