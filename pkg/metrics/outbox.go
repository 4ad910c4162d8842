package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts outbox relay results per event type.
type OutboxMetrics struct {
	publishes *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox relay counters on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox rows handled by the publisher by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(publishes)
	return &OutboxMetrics{publishes: publishes}
}

// IncPublish records one publish attempt outcome (published, retry, dead_lettered).
func (o *OutboxMetrics) IncPublish(eventType, outcome string) {
	if o == nil || o.publishes == nil {
		return
	}
	o.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
