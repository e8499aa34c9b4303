package datalog

import "fmt"

// Rule is a head predicate, an ordered body of predicates, and an ordered
// list of guard expressions. Every rule must be range-restricted: every
// variable in the head or in any guard must appear in at least one body
// predicate. NewRule checks this at construction time as a caller error,
// so the engine itself never receives an un-validated Rule.
type Rule struct {
	Head   Predicate
	Body   []Predicate
	Guards []*Expression
}

// NewRule builds a Rule, validating range restriction.
func NewRule(head Predicate, body []Predicate, guards []*Expression) (Rule, error) {
	r := Rule{Head: head, Body: body, Guards: guards}
	if err := r.checkRangeRestricted(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (r Rule) checkRangeRestricted() error {
	inBody := bodyVariables(r.Body)
	for _, t := range r.Head.Terms {
		if t.Kind == KindVariable {
			if _, ok := inBody[t.Sym]; !ok {
				return fmt.Errorf("datalog: rule head variable $%s does not appear in the body", t.Sym)
			}
		}
	}
	for _, g := range r.Guards {
		used := make(map[string]struct{})
		g.Variables(used)
		for name := range used {
			if _, ok := inBody[name]; !ok {
				return fmt.Errorf("datalog: guard variable $%s does not appear in the body", name)
			}
		}
	}
	return nil
}

// QueryItem is a body plus guards with no head: the shape shared by check
// disjuncts and policy disjuncts. It is satisfied against a fact set iff
// at least one complete binding survives its guards.
type QueryItem struct {
	Body   []Predicate
	Guards []*Expression
}

// satisfiedBy reports whether qi has at least one complete, guard-passing
// binding over facts, the definition of a satisfied query item.
func (qi QueryItem) satisfiedBy(facts []Fact, allowRegexes bool) bool {
	for _, b := range matchBody(qi.Body, facts) {
		if guardsPass(qi.Guards, b, allowRegexes) {
			return true
		}
	}
	return false
}

// guardsPass reports whether every guard in guards evaluates to exactly
// Bool(true) against b. Any type error, unbound variable, or non-Bool(true)
// result (including Bool(false)) rejects the binding, and the
// design notes' silent-reject open-question resolution.
func guardsPass(guards []*Expression, b Binding, allowRegexes bool) bool {
	for _, g := range guards {
		v, err := g.Evaluate(b, allowRegexes)
		if err != nil {
			return false
		}
		if v.Kind != KindBool || !v.B {
			return false
		}
	}
	return true
}

// Check is a non-empty disjunction of query items. It is satisfied iff at
// least one of its query items is satisfied.
type Check struct {
	Queries []QueryItem
}

// satisfiedBy reports whether c holds against the saturated fact set.
func (c Check) satisfiedBy(facts []Fact, allowRegexes bool) bool {
	for _, qi := range c.Queries {
		if qi.satisfiedBy(facts, allowRegexes) {
			return true
		}
	}
	return false
}

// PolicyKind distinguishes an allow policy from a deny policy.
type PolicyKind uint8

const (
	PolicyAllow PolicyKind = iota
	PolicyDeny
)

// Policy pairs a kind with a disjunction of query items, evaluated by the
// verifier in declaration order.
type Policy struct {
	Kind    PolicyKind
	Queries []QueryItem
}

// matchingQuery returns the first query item of p that is satisfied
// against facts, and true, or false if none match.
func (p Policy) matchingQuery(facts []Fact, allowRegexes bool) (QueryItem, bool) {
	for _, qi := range p.Queries {
		if qi.satisfiedBy(facts, allowRegexes) {
			return qi, true
		}
	}
	return QueryItem{}, false
}

// Block is a group of facts, rules and checks. The authority block is
// index 0; attenuation blocks occupy indices 1..N. RevocationID is the
// block's opaque, key-bound identifier; UniqueRevocationID is bound to
// this specific token instance; both are produced by collaborators
// outside this package (signing/serialization) and merely carried here.
type Block struct {
	Facts              []Fact
	Rules              []Rule
	Checks             []Check
	RevocationID       []byte
	UniqueRevocationID []byte
}

// Verifier is a synthetic block plus an ordered list of policies.
type Verifier struct {
	Facts    []Fact
	Rules    []Rule
	Checks   []Check
	Policies []Policy
}
