package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for cash card operations.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CashCardOps counts cash card operations (create, list, get, update, delete) by outcome.
	CashCardOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashcard_operations_total",
			Help: "Total number of cash card operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// AuthFailures counts rejected requests by reason (missing, invalid, forbidden, error).
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of rejected authentication or authorization attempts",
		},
		[]string{"reason"},
	)

	// AuditPurged counts audit log rows removed by the retention job.
	AuditPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_purged_total",
			Help: "Total number of audit log entries removed by retention",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, CashCardOps, AuthFailures, AuditPurged)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /cashcards/99 -> /cashcards/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncCashCardOp(operation, outcome string) {
	CashCardOps.WithLabelValues(operation, outcome).Inc()
}

func IncAuthFailure(reason string) {
	AuthFailures.WithLabelValues(reason).Inc()
}

func AddAuditPurged(n int64) {
	AuditPurged.Add(float64(n))
}
