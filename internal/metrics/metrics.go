package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Processed chat messages by detected intent",
	}, []string{"intent"})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_created_total",
		Help: "New chat sessions created",
	})

	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_closed_total",
		Help: "Sessions closed and rolled up into performance metrics",
	})

	QualifiedLeads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_qualified_leads_total",
		Help: "Sessions that crossed the lead qualification threshold",
	})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_turn_duration_seconds",
		Help:    "End-to-end latency per chat turn, persistence included",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	BackendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_backend_duration_seconds",
		Help:    "Model backend latency per generation call",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_backend_errors_total",
		Help: "Model backend failures by kind",
	}, []string{"kind"})
)
