package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for the hub API server
var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.DefBuckets, // Default: .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts the total number of HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)
)

// Survey domain metrics
var (
	// SubmissionsStored gauges how many benchmark submissions the hub holds
	SubmissionsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_submissions_stored",
			Help: "Number of benchmark submissions currently stored",
		},
	)

	// SubmissionsReceived counts submission uploads by outcome
	SubmissionsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_submissions_received_total",
			Help: "Total number of submission uploads by outcome (stored, invalid, storage_error)",
		},
		[]string{"outcome"},
	)

	// TestDataRequests counts test manifest fetches by platform
	TestDataRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_test_data_requests_total",
			Help: "Total number of test manifest fetches by platform",
		},
		[]string{"platform"},
	)

	// ReportedCapacity observes the max_concurrent_streams values submitted,
	// split by hardware path
	ReportedCapacity = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_reported_capacity_streams",
			Help:    "Reported max concurrent streams by hardware path",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512 streams
		},
		[]string{"path"},
	)
)

// Helper functions for common metric operations

// RecordHTTPRequest records the duration and increments the counter for an HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSubmission counts one submission upload.
// outcome should be "stored", "invalid", or "storage_error".
func RecordSubmission(outcome string) {
	SubmissionsReceived.WithLabelValues(outcome).Inc()
}

// RecordTestDataRequest counts one test manifest fetch
func RecordTestDataRequest(platform string) {
	TestDataRequests.WithLabelValues(platform).Inc()
}

// RecordReportedCapacity observes one path verdict from a stored submission
func RecordReportedCapacity(path string, streams int) {
	ReportedCapacity.WithLabelValues(path).Observe(float64(streams))
}

// InitializeSubmissionMetrics populates the stored-submissions gauge from
// database state on startup, so the metric reflects reality before the first
// upload arrives.
func InitializeSubmissionMetrics(count int) {
	SubmissionsStored.Set(float64(count))
	slog.Info("initialized submission metrics from database",
		slog.Int("submissions", count))
}
