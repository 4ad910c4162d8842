package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics counts what happens to checkouts and their webhook deliveries.
type PipelineMetrics struct {
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	reconciliations  *prometheus.CounterVec
}

// NewPipelineMetrics registers the checkout pipeline counters on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Hosted checkout session attempts by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Verified Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_reconciliations_total",
		Help: "Checkout session reconciliations by result and reason.",
	}, []string{"result", "reason"})
	reg.MustRegister(checkoutSessions, webhookEvents, reconciliations)
	return &PipelineMetrics{
		checkoutSessions: checkoutSessions,
		webhookEvents:    webhookEvents,
		reconciliations:  reconciliations,
	}
}

// IncCheckoutSession records a checkout initiation outcome.
func (p *PipelineMetrics) IncCheckoutSession(outcome string) {
	if p == nil || p.checkoutSessions == nil {
		return
	}
	p.checkoutSessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent records how a webhook delivery was handled.
func (p *PipelineMetrics) IncWebhookEvent(eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncReconciliation records a reconciliation result; reason is empty on success.
func (p *PipelineMetrics) IncReconciliation(result, reason string) {
	if p == nil || p.reconciliations == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	p.reconciliations.WithLabelValues(normalizeLabel(result), reason).Inc()
}
