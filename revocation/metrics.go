package revocation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts revocation checks and tracks the size of the revoked
// set, registered against whichever Registerer the caller supplies.
type Metrics struct {
	checks    *prometheus.CounterVec
	setSize   prometheus.Gauge
	syncCount *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered against reg. A nil
// reg yields collectors that are not registered anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biscuit_revocation_checks_total",
				Help: "Total number of revocation checks, by result.",
			},
			[]string{"result"},
		),
		setSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "biscuit_revocation_set_size",
				Help: "Current number of ids in the revoked set.",
			},
		),
		syncCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biscuit_revocation_sync_total",
				Help: "Total number of revocation list syncs, by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordCheck records the outcome of one IsRevoked call.
func (m *Metrics) RecordCheck(revoked bool, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.checks.WithLabelValues("error").Inc()
	case revoked:
		m.checks.WithLabelValues("revoked").Inc()
	default:
		m.checks.WithLabelValues("not_revoked").Inc()
	}
}

// SetSize records the current size of the revoked set.
func (m *Metrics) SetSize(n int) {
	if m == nil {
		return
	}
	m.setSize.Set(float64(n))
}

// RecordSync records the outcome of a sync pass from a file or git watcher.
func (m *Metrics) RecordSync(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.syncCount.WithLabelValues("error").Inc()
		return
	}
	m.syncCount.WithLabelValues("ok").Inc()
}
