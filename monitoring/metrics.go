package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Payment commands by operation and outcome",
		},
		[]string{"operation", "provider", "status"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Duration of payment provider RPC calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"provider", "call"},
	)

	matchTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_transitions_total",
			Help: "Match lifecycle transitions by target status",
		},
		[]string{"status"},
	)

	tournamentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_transitions_total",
			Help: "Tournament lifecycle transitions by target status",
		},
		[]string{"status"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published per topic",
		},
		[]string{"topic"},
	)

	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Domain events consumed per topic, group and result",
		},
		[]string{"topic", "group", "result"},
	)

	notificationSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sends_total",
			Help: "Notification channel attempts by result",
		},
		[]string{"channel", "result"},
	)
)

func PaymentOperation(operation, provider, status string) {
	paymentOperations.WithLabelValues(operation, provider, status).Inc()
}

func ProviderCall(provider, call string, duration time.Duration) {
	providerCallDuration.WithLabelValues(provider, call).Observe(duration.Seconds())
}

func MatchTransition(status string) {
	matchTransitions.WithLabelValues(status).Inc()
}

func TournamentTransition(status string) {
	tournamentTransitions.WithLabelValues(status).Inc()
}

func EventPublished(topic string) {
	eventsPublished.WithLabelValues(topic).Inc()
}

func EventConsumed(topic, group, result string) {
	eventsConsumed.WithLabelValues(topic, group, result).Inc()
}

func NotificationSend(channel, result string) {
	notificationSends.WithLabelValues(channel, result).Inc()
}
