// Package metrics holds the Prometheus collectors shared by the social core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OnlineUsers is the number of users currently holding a live session.
	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matcha_presence_online_users",
			Help: "Users currently holding a live real-time session",
		},
	)

	// RealtimeEvents counts push attempts by event type and outcome
	// (delivered, offline, dropped).
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcha_realtime_events_total",
			Help: "Real-time push attempts by event type and outcome",
		},
		[]string{"event", "outcome"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcha_notifications_created_total",
			Help: "Notification records written by type",
		},
		[]string{"type"},
	)

	// InteractionTransitions counts like/unlike/block/unblock/report/visit
	// calls by outcome (applied, noop, rejected, error).
	InteractionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcha_interaction_transitions_total",
			Help: "Interaction state machine calls by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcha_chat_messages_posted_total",
			Help: "Chat messages persisted",
		},
	)

	ModerationAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcha_moderation_alerts_total",
			Help: "Moderation alerts by outcome (sent, failed, rejected, dropped)",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matcha_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// DiscoveryResults observes how many candidates each discovery call returns.
	DiscoveryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matcha_discovery_results",
			Help:    "Candidates returned per discovery call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"op"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcha_cache_requests_total",
			Help: "Redis cache lookups by key family and result (hit, miss, error)",
		},
		[]string{"family", "result"},
	)
)
