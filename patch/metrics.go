package patch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for reconciliation passes.
type Metrics struct {
	PassesTotal       prometheus.Counter
	PassDuration      prometheus.Histogram
	ConnectsTotal     *prometheus.CounterVec
	DisconnectsTotal  *prometheus.CounterVec
	SkippedPairsTotal *prometheus.CounterVec
	Sockets           *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		PassesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "patchbay_reconcile_passes_total",
			Help: "Total number of reconciliation passes",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "patchbay_reconcile_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		ConnectsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_connects_total",
			Help: "Connect calls issued by the reconciler",
		}, []string{"result"}),
		DisconnectsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_disconnects_total",
			Help: "Disconnect calls issued by the reconciler",
		}, []string{"result"}),
		SkippedPairsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_skipped_pairs_total",
			Help: "Connection list pairs that were not wired",
		}, []string{"reason"}),
		Sockets: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "patchbay_sockets",
			Help: "Registered sockets by role",
		}, []string{"role"}),
	}
}

const (
	resultOK         = "ok"
	resultSuppressed = "suppressed"
	resultFailed     = "failed"

	reasonUnresolved = "unresolved"
	reasonRole       = "role"
)

func (m *Metrics) observe(rep Report, counts map[Role]int) {
	if m == nil {
		return
	}

	m.PassesTotal.Inc()
	m.PassDuration.Observe(rep.Duration.Seconds())

	m.ConnectsTotal.WithLabelValues(resultOK).Add(float64(rep.Connected))
	m.ConnectsTotal.WithLabelValues(resultSuppressed).Add(float64(rep.connectSuppressed))
	m.ConnectsTotal.WithLabelValues(resultFailed).Add(float64(rep.connectFailed))

	m.DisconnectsTotal.WithLabelValues(resultOK).Add(float64(rep.Disconnected))
	m.DisconnectsTotal.WithLabelValues(resultSuppressed).Add(float64(rep.disconnectSuppressed))
	m.DisconnectsTotal.WithLabelValues(resultFailed).Add(float64(rep.disconnectFailed))

	m.SkippedPairsTotal.WithLabelValues(reasonUnresolved).Add(float64(rep.Skipped))
	m.SkippedPairsTotal.WithLabelValues(reasonRole).Add(float64(rep.Rejected))

	for _, role := range []Role{RoleSource, RoleTarget, RoleParam} {
		m.Sockets.WithLabelValues(role.String()).Set(float64(counts[role]))
	}
}
