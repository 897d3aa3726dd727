package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation
	ReconcilePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_passes_total",
			Help: "Total number of status reconciliation passes by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	ReconcileTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_transitions_total",
			Help: "Total number of match status transitions committed, by target status",
		},
		[]string{"to"},
	)

	ReconcilePassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_pass_duration_seconds",
			Help:    "Duration of a reconciliation pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Notifications
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications handed to a channel",
		},
		[]string{"channel", "scope"}, // scope: "all", "user"
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of notifications a channel could not accept",
		},
		[]string{"channel", "scope"},
	)

	// WebSocket
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients_active",
			Help: "Current number of connected notification clients",
		},
	)
)

// RecordReconcilePass records the outcome of one pass.
func RecordReconcilePass(result string, duration time.Duration) {
	ReconcilePasses.WithLabelValues(result).Inc()
	ReconcilePassDuration.Observe(duration.Seconds())
}

func RecordTransition(to string) {
	ReconcileTransitions.WithLabelValues(to).Inc()
}

// RecordNotification counts a delivery attempt on channel.
func RecordNotification(channel, scope string, err error) {
	if err != nil {
		NotificationFailures.WithLabelValues(channel, scope).Inc()
		return
	}
	NotificationsSent.WithLabelValues(channel, scope).Inc()
}
