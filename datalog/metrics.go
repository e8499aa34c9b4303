package datalog

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors emitted around Verify calls.
// Unlike promauto's package-level helpers, NewMetrics registers against
// the Registerer passed to it, so a process embedding more than one
// Metrics instance (or a test suite constructing one per test case) never
// hits a duplicate-registration panic.
type Metrics struct {
	verdicts        *prometheus.CounterVec
	executionErrors *prometheus.CounterVec
	verifyDuration  prometheus.Histogram
}

// NewMetrics creates a Metrics instance registered against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biscuit_datalog_verdicts_total",
				Help: "Total number of Verify calls by verdict outcome.",
			},
			[]string{"outcome"},
		),
		executionErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biscuit_datalog_execution_errors_total",
				Help: "Total number of Verify calls aborted by an execution error, by kind.",
			},
			[]string{"kind"},
		),
		verifyDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "biscuit_datalog_verify_duration_seconds",
				Help:    "Wall-clock duration of Verify calls.",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20),
			},
		),
	}
}

// observeOutcome classifies err (nil meaning allow) into the small set of
// labels the verdicts/execution_errors counters use.
func (m *Metrics) observeOutcome(err error) {
	if m == nil {
		return
	}
	switch err.(type) {
	case nil:
		m.verdicts.WithLabelValues("allow").Inc()
	case *NoPoliciesMatchedError:
		m.verdicts.WithLabelValues("no_policy_matched").Inc()
	case *FailedChecksError:
		m.verdicts.WithLabelValues("failed_checks").Inc()
	case *DenyRuleMatchedError:
		m.verdicts.WithLabelValues("deny_matched").Inc()
	case *TimeoutError:
		m.executionErrors.WithLabelValues("timeout").Inc()
	case *TooManyFactsError:
		m.executionErrors.WithLabelValues("too_many_facts").Inc()
	case *TooManyIterationsError:
		m.executionErrors.WithLabelValues("too_many_iterations").Inc()
	case *FactsInBlocksError:
		m.executionErrors.WithLabelValues("facts_in_blocks").Inc()
	case *RevokedError:
		m.executionErrors.WithLabelValues("revoked").Inc()
	case *RevocationCheckError:
		m.executionErrors.WithLabelValues("revocation_check_failed").Inc()
	default:
		m.executionErrors.WithLabelValues("other").Inc()
	}
}

// VerifyWithMetrics wraps Verify, recording the outcome and duration
// against m. A nil m disables recording; callers that don't need metrics
// can call Verify directly.
func VerifyWithMetrics(ctx context.Context, verifier Verifier, authority Block, attenuation []Block, limits Limits, m *Metrics) (*Verdict, error) {
	start := time.Now()
	verdict, err := Verify(ctx, verifier, authority, attenuation, limits)
	if m != nil {
		m.verifyDuration.Observe(time.Since(start).Seconds())
		m.observeOutcome(err)
	}
	return verdict, err
}
