package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeNoCredentials = "no_credentials"
	OutcomeFailed        = "failed"
	OutcomeEmpty         = "empty"
	OutcomeBusy          = "busy"
)

var (
	sessionsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftlog",
		Subsystem: "store",
		Name:      "sessions_saved_total",
		Help:      "Sessions appended to the collection.",
	})
	sessionsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftlog",
		Subsystem: "store",
		Name:      "sessions_deleted_total",
		Help:      "Sessions removed from the collection.",
	})
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftlog",
		Subsystem: "store",
		Name:      "persist_failures_total",
		Help:      "Slot writes that failed.",
	})
	progressSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liftlog",
		Subsystem: "progress",
		Name:      "points_skipped_total",
		Help:      "Progress points left out because the matched exercise had no sets.",
	})
	analysisRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftlog",
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Analysis requests by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(sessionsSaved, sessionsDeleted, persistFailures, progressSkipped, analysisRequests)
}

// RecordSessionSaved counts one appended session.
func RecordSessionSaved() {
	sessionsSaved.Inc()
}

// RecordSessionDeleted counts one deleted session.
func RecordSessionDeleted() {
	sessionsDeleted.Inc()
}

// RecordPersistFailure counts one failed slot write.
func RecordPersistFailure() {
	persistFailures.Inc()
}

// RecordProgressSkipped adds n skipped progress points.
func RecordProgressSkipped(n int) {
	if n <= 0 {
		return
	}
	progressSkipped.Add(float64(n))
}

// RecordAnalysis counts one analysis request with the given outcome.
func RecordAnalysis(outcome string) {
	analysisRequests.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
