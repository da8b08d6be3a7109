// Package metrics holds the Prometheus collectors for the push service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Invocations counts engine runs by envelope kind and outcome
	// (sent, ignored, nothing_to_send, no_subscribers, error).
	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_invocations_total",
			Help: "Engine invocations by envelope kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_classifications_total",
			Help: "Classifier decisions by rule",
		},
		[]string{"rule"},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Per-token delivery attempts by result",
		},
		[]string{"result"},
	)

	CredentialFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_credential_failures_total",
			Help: "Failed push credential acquisitions",
		},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_dispatch_duration_seconds",
			Help:    "Time from credential acquisition until every send settled",
			Buckets: prometheus.DefBuckets,
		},
	)

	RemindersClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_reminders_claimed_total",
			Help: "Matches claimed by the reminder sweep",
		},
	)

	ListenerReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_listener_reconnects_total",
			Help: "LISTEN/NOTIFY consumer reconnect attempts",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			Invocations,
			Classifications,
			Deliveries,
			CredentialFailures,
			DispatchDuration,
			RemindersClaimed,
			ListenerReconnects,
		)
	})
}
