package datalog

import "testing"

func TestMatchPredicate(t *testing.T) {
	fact := Fact{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}

	t.Run("variable binds", func(t *testing.T) {
		pred := Predicate{Name: "right", Terms: []Term{Variable("user"), Symbol("read")}}
		b, ok := matchPredicate(pred, fact)
		if !ok {
			t.Fatalf("expected match")
		}
		v, ok := b.Get("user")
		if !ok || !structuralEqual(v, Symbol("alice")) {
			t.Errorf("user bound to %v, want alice", v)
		}
	})

	t.Run("literal mismatch", func(t *testing.T) {
		pred := Predicate{Name: "right", Terms: []Term{Symbol("bob"), Symbol("read")}}
		if _, ok := matchPredicate(pred, fact); ok {
			t.Errorf("expected no match for mismatched literal")
		}
	})

	t.Run("name mismatch", func(t *testing.T) {
		pred := Predicate{Name: "wrong", Terms: []Term{Variable("x"), Symbol("read")}}
		if _, ok := matchPredicate(pred, fact); ok {
			t.Errorf("expected no match for mismatched name")
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		pred := Predicate{Name: "right", Terms: []Term{Variable("x")}}
		if _, ok := matchPredicate(pred, fact); ok {
			t.Errorf("expected no match for mismatched arity")
		}
	})

	t.Run("repeated variable requires agreement", func(t *testing.T) {
		pred := Predicate{Name: "right", Terms: []Term{Variable("x"), Variable("x")}}
		if _, ok := matchPredicate(pred, fact); ok {
			t.Errorf("expected no match: alice != read")
		}
	})
}

func TestConsistentMerge(t *testing.T) {
	a := Binding{}.with("x", Symbol("alice"))
	b := Binding{}.with("y", Symbol("read"))

	merged, ok := consistentMerge(a, b)
	if !ok {
		t.Fatalf("expected consistent merge")
	}
	if len(merged) != 2 {
		t.Errorf("merged binding has %d entries, want 2", len(merged))
	}

	conflicting := Binding{}.with("x", Symbol("bob"))
	if _, ok := consistentMerge(a, conflicting); ok {
		t.Errorf("expected merge to fail on conflicting binding for x")
	}
}

func TestMatchBody_CartesianProductAndCompleteness(t *testing.T) {
	facts := []Fact{
		{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}},
		{Name: "right", Terms: []Term{Symbol("bob"), Symbol("write")}},
		{Name: "owner", Terms: []Term{Symbol("alice"), Symbol("file1")}},
	}

	body := []Predicate{
		{Name: "right", Terms: []Term{Variable("user"), Variable("op")}},
		{Name: "owner", Terms: []Term{Variable("user"), Variable("file")}},
	}

	bindings := matchBody(body, facts)
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings, want 1 (only alice has both a right and an owner fact)", len(bindings))
	}
	user, _ := bindings[0].Get("user")
	if !structuralEqual(user, Symbol("alice")) {
		t.Errorf("user = %v, want alice", user)
	}
}

func TestMatchBody_EmptyBodyYieldsOneEmptyBinding(t *testing.T) {
	bindings := matchBody(nil, []Fact{{Name: "x", Terms: []Term{Int64(1)}}})
	if len(bindings) != 1 || len(bindings[0]) != 0 {
		t.Errorf("matchBody(nil, ...) = %v, want one empty binding", bindings)
	}
}

func TestSubstitute(t *testing.T) {
	b := Binding{}.with("x", Symbol("alice"))

	t.Run("bound variable substitutes", func(t *testing.T) {
		pred := Predicate{Name: "p", Terms: []Term{Variable("x"), Symbol("read")}}
		f, ok := substitute(pred, b)
		if !ok {
			t.Fatalf("expected substitution to succeed")
		}
		if !structuralEqual(f.Terms[0], Symbol("alice")) {
			t.Errorf("f.Terms[0] = %v, want alice", f.Terms[0])
		}
	})

	t.Run("unbound variable fails", func(t *testing.T) {
		pred := Predicate{Name: "p", Terms: []Term{Variable("y")}}
		if _, ok := substitute(pred, b); ok {
			t.Errorf("expected substitution to fail for unbound variable")
		}
	})
}
