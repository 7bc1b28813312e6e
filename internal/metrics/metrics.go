package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for linking and role sync.
type Metrics struct {
	CodesIssued      *prometheus.CounterVec
	LinkAttempts     *prometheus.CounterVec
	ReconcileRuns    *prometheus.CounterVec
	RoleMutations    *prometheus.CounterVec
	SyncCandidates   prometheus.Gauge
	ReconcileSeconds prometheus.Histogram
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crystaltides_link_codes_issued_total",
			Help: "Link codes issued, by issuing namespace",
		}, []string{"source"}),
		LinkAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crystaltides_link_attempts_total",
			Help: "Code redemptions, by outcome",
		}, []string{"outcome"}),
		ReconcileRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crystaltides_reconcile_runs_total",
			Help: "Role reconciliation passes, by result",
		}, []string{"result"}),
		RoleMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crystaltides_role_mutations_total",
			Help: "Role add/remove calls issued by reconciliation",
		}, []string{"action", "result"}),
		SyncCandidates: f.NewGauge(prometheus.GaugeOpts{
			Name: "crystaltides_sync_candidates",
			Help: "Candidate members seen by the last reconciliation pass",
		}),
		ReconcileSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crystaltides_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncCodeIssued(source string) {
	if m == nil {
		return
	}
	m.CodesIssued.WithLabelValues(source).Inc()
}

func (m *Metrics) IncLinkAttempt(outcome string) {
	if m == nil {
		return
	}
	m.LinkAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReconcileRun(result string) {
	if m == nil {
		return
	}
	m.ReconcileRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRoleMutation(action, result string) {
	if m == nil {
		return
	}
	m.RoleMutations.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveReconcile(candidates int, seconds float64) {
	if m == nil {
		return
	}
	m.SyncCandidates.Set(float64(candidates))
	m.ReconcileSeconds.Observe(seconds)
}
