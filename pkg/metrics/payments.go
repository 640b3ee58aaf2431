package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics records outcomes of the payment lifecycle engine.
type PaymentMetrics struct {
	transitions  *prometheus.CounterVec
	ledgerApply  *prometheus.CounterVec
	idempotency  *prometheus.CounterVec
	balanceDrift *prometheus.GaugeVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_payment_transitions_total",
		Help: "Status transition attempts by payment type, target status, and outcome.",
	}, []string{"type", "target", "outcome"})
	ledgerApply := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_ledger_entries_total",
		Help: "Ledger entries appended, by direction.",
	}, []string{"direction"})
	idempotency := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_idempotency_requests_total",
		Help: "Idempotency guard outcomes.",
	}, []string{"outcome"})
	balanceDrift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backoffice_ledger_balance_drift_cents",
		Help: "Difference between a merchant balance and the sum of its ledger entries.",
	}, []string{"merchant_id"})
	reg.MustRegister(transitions, ledgerApply, idempotency, balanceDrift)
	return &PaymentMetrics{
		transitions:  transitions,
		ledgerApply:  ledgerApply,
		idempotency:  idempotency,
		balanceDrift: balanceDrift,
	}
}

// ObserveTransition counts one status transition attempt.
func (p *PaymentMetrics) ObserveTransition(paymentType, target, outcome string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(paymentType), normalizeLabel(target), normalizeLabel(outcome)).Inc()
}

// ObserveLedgerApply counts one appended ledger entry.
func (p *PaymentMetrics) ObserveLedgerApply(amountCents int64) {
	if p == nil || p.ledgerApply == nil {
		return
	}
	direction := "credit"
	if amountCents < 0 {
		direction = "debit"
	}
	p.ledgerApply.WithLabelValues(direction).Inc()
}

// ObserveIdempotency counts one guard outcome (executed, replayed, in_progress).
func (p *PaymentMetrics) ObserveIdempotency(outcome string) {
	if p == nil || p.idempotency == nil {
		return
	}
	p.idempotency.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetBalanceDrift publishes the audited drift for one merchant.
func (p *PaymentMetrics) SetBalanceDrift(merchantID string, driftCents int64) {
	if p == nil || p.balanceDrift == nil {
		return
	}
	p.balanceDrift.WithLabelValues(normalizeLabel(merchantID)).Set(float64(driftCents))
}
