package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetroom",
			Name:      "submission_total",
			Help:      "Count of reservation submissions by result.",
		},
		[]string{"result"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetroom",
			Name:      "decision_total",
			Help:      "Count of administrator decisions over reservations.",
		},
		[]string{"decision"},
	)

	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meetroom",
			Name:      "notify_failure_total",
			Help:      "Count of failed notification deliveries.",
		},
	)

	sheetsSyncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meetroom",
			Name:      "sheets_sync_failure_total",
			Help:      "Count of failed Google Sheets mirror writes.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetroom",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(submissions, decisions, notifyFailures, sheetsSyncFailures, httpRequests)
	})
}

func IncSubmission(result string) {
	submissions.WithLabelValues(result).Inc()
}

func IncDecision(decision string) {
	decisions.WithLabelValues(decision).Inc()
}

func IncNotifyFailure() {
	notifyFailures.Inc()
}

func IncSheetsSyncFailure() {
	sheetsSyncFailures.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
