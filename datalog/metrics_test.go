package datalog

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "allow",
			err:  nil,
		},
		{
			name: "no policies matched",
			err:  &NoPoliciesMatchedError{},
		},
		{
			name: "failed checks",
			err:  &FailedChecksError{},
		},
		{
			name: "deny matched",
			err:  &DenyRuleMatchedError{},
		},
		{
			name: "timeout",
			err:  &TimeoutError{},
		},
		{
			name: "revoked",
			err:  &RevokedError{BlockIndex: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			m := NewMetrics(registry)
			m.observeOutcome(tt.err)
		})
	}
}

func TestVerifyWithMetrics_RecordsOutcomeAndDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	verifier := Verifier{
		Policies: []Policy{{
			Kind:    PolicyAllow,
			Queries: []QueryItem{{Body: []Predicate{{Name: "right", Terms: []Term{Variable("x")}}}}},
		}},
	}
	authority := Block{Facts: []Fact{{Name: "right", Terms: []Term{Symbol("alice")}}}}

	verdict, err := VerifyWithMetrics(context.Background(), verifier, authority, nil, DefaultLimits(), m)
	if err != nil {
		t.Fatalf("VerifyWithMetrics: %v", err)
	}
	if verdict == nil {
		t.Fatal("expected a verdict on allow")
	}

	count := testutil.ToFloat64(m.verdicts.WithLabelValues("allow"))
	if count != 1 {
		t.Errorf("verdicts{outcome=allow} = %v, want 1", count)
	}

	samples, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range samples {
		if mf.GetName() == "biscuit_datalog_verify_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("expected biscuit_datalog_verify_duration_seconds to be registered")
	}
}

func TestVerifyWithMetrics_NilMetricsDoesNotPanic(t *testing.T) {
	verifier := Verifier{
		Policies: []Policy{{
			Kind:    PolicyAllow,
			Queries: []QueryItem{{Body: []Predicate{{Name: "right", Terms: []Term{Variable("x")}}}}},
		}},
	}
	authority := Block{Facts: []Fact{{Name: "right", Terms: []Term{Symbol("alice")}}}}

	if _, err := VerifyWithMetrics(context.Background(), verifier, authority, nil, DefaultLimits(), nil); err != nil {
		t.Fatalf("VerifyWithMetrics with nil metrics: %v", err)
	}
}

func TestNewMetrics_SeparateRegistriesDoNotConflict(t *testing.T) {
	registry1 := prometheus.NewRegistry()
	m1 := NewMetrics(registry1)

	registry2 := prometheus.NewRegistry()
	m2 := NewMetrics(registry2)

	m1.observeOutcome(nil)
	m2.observeOutcome(nil)

	if got := testutil.ToFloat64(m1.verdicts.WithLabelValues("allow")); got != 1 {
		t.Errorf("m1 verdicts{outcome=allow} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m2.verdicts.WithLabelValues("allow")); got != 1 {
		t.Errorf("m2 verdicts{outcome=allow} = %v, want 1", got)
	}
}
