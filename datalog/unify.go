package datalog

import "sort"

// Binding maps variable names to the non-variable terms they are bound
// to. It is kept as a sorted slice rather than a map: per the design
// notes, bindings are produced, merged and consumed entirely within one
// rule application, so no persistent or hashed structure is needed, and a
// sorted slice gives deterministic iteration for free.
type Binding []bindingEntry

type bindingEntry struct {
	Name  string
	Value Term
}

// Get looks up a variable's bound value.
func (b Binding) Get(name string) (Term, bool) {
	i := sort.Search(len(b), func(i int) bool { return b[i].Name >= name })
	if i < len(b) && b[i].Name == name {
		return b[i].Value, true
	}
	return Term{}, false
}

// with returns a new Binding with name bound to value. The caller must
// have already confirmed name is unbound or consistently bound.
func (b Binding) with(name string, value Term) Binding {
	i := sort.Search(len(b), func(i int) bool { return b[i].Name >= name })
	out := make(Binding, len(b)+1)
	copy(out, b[:i])
	out[i] = bindingEntry{Name: name, Value: value}
	copy(out[i+1:], b[i:])
	return out
}

// keys returns the set of variable names bound in b.
func (b Binding) keys() map[string]struct{} {
	out := make(map[string]struct{}, len(b))
	for _, e := range b {
		out[e.Name] = struct{}{}
	}
	return out
}

// matchPredicate matches a (possibly non-ground) body predicate against a
// single ground fact. It returns the binding contributed by
// this one match, or ok=false if the predicate cannot match the fact
// (different name/arity, or a literal term disagrees with the fact, or
// the same variable is required to take two different values within this
// one predicate).
func matchPredicate(pred Predicate, fact Fact) (Binding, bool) {
	if pred.Name != fact.Name || len(pred.Terms) != len(fact.Terms) {
		return nil, false
	}
	var b Binding
	for i, t := range pred.Terms {
		u := fact.Terms[i]
		if t.Kind == KindVariable {
			if existing, ok := b.Get(t.Sym); ok {
				if !structuralEqual(existing, u) {
					return nil, false
				}
				continue
			}
			b = b.with(t.Sym, u)
			continue
		}
		if !structuralEqual(t, u) {
			return nil, false
		}
	}
	return b, true
}

// consistentMerge combines two bindings: for each variable bound
// in both, the bound values must agree; the merged binding is their union.
// ok is false if any shared variable disagrees.
func consistentMerge(a, b Binding) (Binding, bool) {
	out := a
	for _, e := range b {
		if existing, ok := out.Get(e.Name); ok {
			if !structuralEqual(existing, e.Value) {
				return nil, false
			}
			continue
		}
		out = out.with(e.Name, e.Value)
	}
	return out, true
}

// bodyVariables returns the set of variable names appearing anywhere in
// body, used for the completeness check.
func bodyVariables(body []Predicate) map[string]struct{} {
	vars := make(map[string]struct{})
	for _, p := range body {
		for _, t := range p.Terms {
			if t.Kind == KindVariable {
				vars[t.Sym] = struct{}{}
			}
			if t.Kind == KindSet {
				for _, e := range t.Set {
					if e.Kind == KindVariable {
						vars[e.Sym] = struct{}{}
					}
				}
			}
		}
	}
	return vars
}

// isComplete reports whether b binds exactly the variables in want (the
// body's full variable set), per the completeness check.
func isComplete(b Binding, want map[string]struct{}) bool {
	if len(b) != len(want) {
		return false
	}
	for _, e := range b {
		if _, ok := want[e.Name]; !ok {
			return false
		}
	}
	return true
}

// matchBody computes every complete binding of body against facts: for
// each body predicate it finds the bindings under which the predicate
// matches some fact, forms the Cartesian product across predicates
// merging consistently at each step (discarding inconsistent tuples
// early rather than after the full product, which is equivalent but
// cheaper), and keeps only bindings that bind every variable in the body.
func matchBody(body []Predicate, facts []Fact) []Binding {
	if len(body) == 0 {
		return []Binding{{}}
	}
	want := bodyVariables(body)

	results := []Binding{{}}
	for _, pred := range body {
		var next []Binding
		for _, partial := range results {
			for _, fact := range facts {
				contrib, ok := matchPredicate(pred, fact)
				if !ok {
					continue
				}
				merged, ok := consistentMerge(partial, contrib)
				if !ok {
					continue
				}
				next = append(next, merged)
			}
		}
		results = next
		if len(results) == 0 {
			return nil
		}
	}

	out := make([]Binding, 0, len(results))
	for _, b := range results {
		if isComplete(b, want) {
			out = append(out, b)
		}
	}
	return out
}

// substitute replaces every variable in pred with its bound value from b.
// ok is false if some variable in pred is unbound (which range
// restriction, enforced at rule construction time, makes impossible
// for rule heads, so this path is defensive).
func substitute(pred Predicate, b Binding) (Fact, bool) {
	out := Fact{Name: pred.Name, Terms: make([]Term, len(pred.Terms))}
	for i, t := range pred.Terms {
		if t.Kind == KindVariable {
			v, ok := b.Get(t.Sym)
			if !ok {
				return Fact{}, false
			}
			out.Terms[i] = v
			continue
		}
		out.Terms[i] = t
	}
	return out, true
}
