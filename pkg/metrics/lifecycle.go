package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records billing account state transitions and commission
// volume.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	commissions *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided
// registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_account_transitions",
		Help: "Billing account status transitions by from/to status.",
	}, []string{"from", "to"})
	commissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_cents_total",
		Help: "Commission amounts recorded, in cents, by entry kind.",
	}, []string{"kind"})
	reg.MustRegister(transitions, commissions)
	return &LifecycleMetrics{
		transitions: transitions,
		commissions: commissions,
	}
}

// IncTransition increments the transition counter for a from/to status pair.
func (l *LifecycleMetrics) IncTransition(from, to string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// AddCommission adds a recorded amount to the commission counter by kind.
func (l *LifecycleMetrics) AddCommission(kind string, amountCents int64) {
	if l == nil || l.commissions == nil {
		return
	}
	l.commissions.WithLabelValues(normalizeLabel(kind)).Add(float64(amountCents))
}
