package datalog

import (
	"context"
	"testing"
)

func mustRule(t *testing.T, head Predicate, body []Predicate, guards []*Expression) Rule {
	t.Helper()
	r, err := NewRule(head, body, guards)
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	return r
}

func TestApplyRule_DerivesAndRejectsOnGuard(t *testing.T) {
	facts := []Fact{
		{Name: "right", Terms: []Term{Symbol("alice"), Int64(5)}},
		{Name: "right", Terms: []Term{Symbol("bob"), Int64(1)}},
	}

	rule := mustRule(t,
		Predicate{Name: "trusted", Terms: []Term{Variable("user")}},
		[]Predicate{{Name: "right", Terms: []Term{Variable("user"), Variable("level")}}},
		[]*Expression{Binary(OpGreaterThan, Val(Variable("level")), Val(Int64(2)))},
	)

	derived := applyRule(rule, facts, true)
	if len(derived) != 1 {
		t.Fatalf("got %d derived facts, want 1 (only alice's level exceeds 2)", len(derived))
	}
	if !structuralEqual(derived[0].Terms[0], Symbol("alice")) {
		t.Errorf("derived fact = %v, want trusted(alice)", derived[0])
	}
}

func TestFixpoint_ReachesSaturationAndStops(t *testing.T) {
	w := &World{Facts: NewFactSet()}
	w.Facts.Add(Fact{Name: "seed", Terms: []Term{Int64(0)}})

	w.TrustedRules = []Rule{
		mustRule(t,
			Predicate{Name: "seed", Terms: []Term{Variable("n")}},
			[]Predicate{{Name: "seed", Terms: []Term{Variable("n")}}},
			[]*Expression{Binary(OpLessThan, Val(Variable("n")), Val(Int64(3)))},
		),
	}

	limits := DefaultLimits()
	if err := fixpoint(context.Background(), w, limits); err != nil {
		t.Fatalf("fixpoint returned error: %v", err)
	}
	if w.Facts.Len() != 1 {
		t.Errorf("fact set size = %d, want 1 (the rule only re-derives the seed fact, already present)", w.Facts.Len())
	}
}

func TestFixpoint_TooManyFacts(t *testing.T) {
	w := &World{Facts: NewFactSet()}
	for i := 0; i < 5; i++ {
		w.Facts.Add(Fact{Name: "counter", Terms: []Term{Int64(int64(i))}})
	}
	w.TrustedRules = []Rule{
		mustRule(t,
			Predicate{Name: "doubled", Terms: []Term{Variable("n")}},
			[]Predicate{{Name: "counter", Terms: []Term{Variable("n")}}},
			nil,
		),
	}

	limits := DefaultLimits()
	limits.MaxFacts = 3

	err := fixpoint(context.Background(), w, limits)
	if _, ok := err.(*TooManyFactsError); !ok {
		t.Fatalf("fixpoint error = %v, want *TooManyFactsError", err)
	}
}

func TestFixpoint_TooManyIterations(t *testing.T) {
	// A five-hop chain requires five fixpoint passes to fully propagate
	// reachability one hop at a time; capping iterations at two must abort
	// before saturation.
	w := &World{Facts: NewFactSet()}
	w.Facts.Add(Fact{Name: "reach", Terms: []Term{Symbol("a0")}})
	for i := 0; i < 5; i++ {
		w.Facts.Add(Fact{Name: "next", Terms: []Term{Symbol(symName(i)), Symbol(symName(i + 1))}})
	}

	w.TrustedRules = []Rule{
		mustRule(t,
			Predicate{Name: "reach", Terms: []Term{Variable("to")}},
			[]Predicate{
				{Name: "reach", Terms: []Term{Variable("from")}},
				{Name: "next", Terms: []Term{Variable("from"), Variable("to")}},
			},
			nil,
		),
	}

	limits := DefaultLimits()
	limits.MaxFacts = 1000
	limits.MaxIterations = 2

	err := fixpoint(context.Background(), w, limits)
	if _, ok := err.(*TooManyIterationsError); !ok {
		t.Fatalf("fixpoint error = %v, want *TooManyIterationsError", err)
	}
}

func symName(i int) string { return "a" + string(rune('0'+i)) }

func TestFixpoint_BlockDerivedForgeryIsDropped(t *testing.T) {
	w := &World{Facts: NewFactSet()}
	w.Facts.Add(Fact{Name: "seed", Terms: []Term{Symbol("x")}})

	w.BlockRules = []Rule{
		mustRule(t,
			Predicate{Name: "right", Terms: []Term{Symbol("authority")}},
			[]Predicate{{Name: "seed", Terms: []Term{Variable("x")}}},
			nil,
		),
	}

	limits := DefaultLimits()
	if err := fixpoint(context.Background(), w, limits); err != nil {
		t.Fatalf("fixpoint returned error: %v", err)
	}
	for _, f := range w.Facts.Facts() {
		if f.Name == "right" {
			t.Errorf("forged fact %v should have been dropped by the reserved-symbol filter", f)
		}
	}
}
