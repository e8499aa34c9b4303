package datalog

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// ExprKind identifies which variant of Expression a node is.
type ExprKind uint8

const (
	ExprValue ExprKind = iota
	ExprUnary
	ExprBinary
)

// UnaryOp enumerates the unary expression operators.
type UnaryOp uint8

const (
	OpParens UnaryOp = iota
	OpNegate
	OpLength
)

// BinaryOp enumerates the binary expression operators.
type BinaryOp uint8

const (
	OpEqual BinaryOp = iota
	OpLessThan
	OpGreaterThan
	OpLessOrEqual
	OpGreaterOrEqual
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPrefix
	OpSuffix
	OpRegex
	OpAnd
	OpOr
	OpContains
	OpIntersection
	OpUnion
)

// Expression is a closed-sum expression tree: a Value leaf or a Unary or
// Binary internal node. Guards are lists of Expression that must each
// evaluate to Bool(true) for a binding to survive.
type Expression struct {
	Kind ExprKind

	// ExprValue
	Value Term

	// ExprUnary
	UnaryOp UnaryOp
	Operand *Expression

	// ExprBinary
	BinaryOp BinaryOp
	Left     *Expression
	Right    *Expression
}

// Val builds a literal or variable leaf expression.
func Val(t Term) *Expression { return &Expression{Kind: ExprValue, Value: t} }

// Unary builds a unary expression node.
func Unary(op UnaryOp, operand *Expression) *Expression {
	return &Expression{Kind: ExprUnary, UnaryOp: op, Operand: operand}
}

// Binary builds a binary expression node.
func Binary(op BinaryOp, left, right *Expression) *Expression {
	return &Expression{Kind: ExprBinary, BinaryOp: op, Left: left, Right: right}
}

// evalError is returned by Evaluate for any type mismatch, unbound
// variable, disabled feature, or arithmetic fault. Per the design notes,
// callers treat any evalError as "guard false": the binding is rejected,
// not the whole evaluation.
type evalError struct{ msg string }

func (e *evalError) Error() string { return e.msg }

func typeErrorf(format string, args ...interface{}) error {
	return &evalError{msg: fmt.Sprintf(format, args...)}
}

// Variables adds to into the name of every variable referenced anywhere
// in the expression tree; NewRule uses it to check that guard variables
// appear in the rule body.
func (e *Expression) Variables(into map[string]struct{}) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprValue:
		if e.Value.Kind == KindVariable {
			into[e.Value.Sym] = struct{}{}
		}
	case ExprUnary:
		e.Operand.Variables(into)
	case ExprBinary:
		e.Left.Variables(into)
		e.Right.Variables(into)
	}
}

// Evaluate walks the expression tree against a single binding and
// produces a term, or an evalError. It is a straightforward recursive
// tree-walking interpreter, budget-bounded implicitly by the number of
// bindings the caller evaluates a guard against; there is no bytecode or
// JIT layer, per the design notes.
func (e *Expression) Evaluate(b Binding, allowRegexes bool) (Term, error) {
	if e == nil {
		return Term{}, typeErrorf("nil expression")
	}
	switch e.Kind {
	case ExprValue:
		if e.Value.Kind == KindVariable {
			v, ok := b.Get(e.Value.Sym)
			if !ok {
				return Term{}, typeErrorf("unbound variable $%s", e.Value.Sym)
			}
			return v, nil
		}
		return e.Value, nil

	case ExprUnary:
		v, err := e.Operand.Evaluate(b, allowRegexes)
		if err != nil {
			return Term{}, err
		}
		return evalUnary(e.UnaryOp, v)

	case ExprBinary:
		l, err := e.Left.Evaluate(b, allowRegexes)
		if err != nil {
			return Term{}, err
		}
		r, err := e.Right.Evaluate(b, allowRegexes)
		if err != nil {
			return Term{}, err
		}
		return evalBinary(e.BinaryOp, l, r, allowRegexes)

	default:
		return Term{}, typeErrorf("unknown expression kind %d", e.Kind)
	}
}

func evalUnary(op UnaryOp, v Term) (Term, error) {
	switch op {
	case OpParens:
		return v, nil

	case OpNegate:
		if v.Kind != KindBool {
			return Term{}, typeErrorf("negate requires Bool, got %s", v.Kind)
		}
		return Bool(!v.B), nil

	case OpLength:
		switch v.Kind {
		case KindString:
			return Int64(int64(utf8.RuneCountInString(v.Str))), nil
		case KindBytes:
			return Int64(int64(len(v.Byt))), nil
		case KindSet:
			return Int64(int64(len(v.Set))), nil
		default:
			return Term{}, typeErrorf("length requires String, Bytes or Set, got %s", v.Kind)
		}

	default:
		return Term{}, typeErrorf("unknown unary operator %d", op)
	}
}

func evalBinary(op BinaryOp, l, r Term, allowRegexes bool) (Term, error) {
	switch op {
	case OpEqual:
		return evalEqual(l, r)

	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual:
		return evalOrdering(op, l, r)

	case OpAdd, OpSub, OpMul, OpDiv:
		return evalArith(op, l, r)

	case OpPrefix:
		a, b, err := twoStrings("prefix", l, r)
		if err != nil {
			return Term{}, err
		}
		return Bool(len(a) >= len(b) && a[:len(b)] == b), nil

	case OpSuffix:
		a, b, err := twoStrings("suffix", l, r)
		if err != nil {
			return Term{}, err
		}
		return Bool(len(a) >= len(b) && a[len(a)-len(b):] == b), nil

	case OpRegex:
		return evalRegex(l, r, allowRegexes)

	case OpAnd:
		a, b, err := twoBools("and", l, r)
		if err != nil {
			return Term{}, err
		}
		return Bool(a && b), nil

	case OpOr:
		a, b, err := twoBools("or", l, r)
		if err != nil {
			return Term{}, err
		}
		return Bool(a || b), nil

	case OpContains:
		return evalContains(l, r)

	case OpIntersection:
		return evalSetOp(l, r, intersectSets)

	case OpUnion:
		return evalSetOp(l, r, unionSets)

	default:
		return Term{}, typeErrorf("unknown binary operator %d", op)
	}
}

func evalEqual(l, r Term) (Term, error) {
	if l.Kind != r.Kind {
		return Term{}, typeErrorf("equal requires matching types, got %s and %s", l.Kind, r.Kind)
	}
	if l.Kind == KindVariable {
		return Term{}, typeErrorf("equal does not accept unresolved variables")
	}
	return Bool(structuralEqual(l, r)), nil
}

func evalOrdering(op BinaryOp, l, r Term) (Term, error) {
	if l.Kind != r.Kind || (l.Kind != KindInt64 && l.Kind != KindDate) {
		return Term{}, typeErrorf("ordering operator requires two Int64 or two Date, got %s and %s", l.Kind, r.Kind)
	}
	var cmp int
	if l.Kind == KindInt64 {
		cmp = 0
		switch {
		case l.Int < r.Int:
			cmp = -1
		case l.Int > r.Int:
			cmp = 1
		}
	} else {
		switch {
		case l.Date.Before(r.Date):
			cmp = -1
		case l.Date.After(r.Date):
			cmp = 1
		}
	}
	switch op {
	case OpLessThan:
		return Bool(cmp < 0), nil
	case OpGreaterThan:
		return Bool(cmp > 0), nil
	case OpLessOrEqual:
		return Bool(cmp <= 0), nil
	case OpGreaterOrEqual:
		return Bool(cmp >= 0), nil
	default:
		return Term{}, typeErrorf("not an ordering operator")
	}
}

func evalArith(op BinaryOp, l, r Term) (Term, error) {
	if l.Kind != KindInt64 || r.Kind != KindInt64 {
		return Term{}, typeErrorf("arithmetic requires two Int64, got %s and %s", l.Kind, r.Kind)
	}
	a, b := l.Int, r.Int
	switch op {
	case OpAdd:
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return Term{}, typeErrorf("integer overflow in addition")
		}
		return Int64(sum), nil
	case OpSub:
		diff := a - b
		if (b < 0 && diff < a) || (b > 0 && diff > a) {
			return Term{}, typeErrorf("integer overflow in subtraction")
		}
		return Int64(diff), nil
	case OpMul:
		if a == 0 || b == 0 {
			return Int64(0), nil
		}
		prod := a * b
		if prod/b != a {
			return Term{}, typeErrorf("integer overflow in multiplication")
		}
		return Int64(prod), nil
	case OpDiv:
		if b == 0 {
			return Term{}, typeErrorf("division by zero")
		}
		if a == minInt64 && b == -1 {
			return Term{}, typeErrorf("integer overflow in division")
		}
		return Int64(a / b), nil
	default:
		return Term{}, typeErrorf("not an arithmetic operator")
	}
}

const minInt64 = -1 << 63

func twoStrings(name string, l, r Term) (string, string, error) {
	if l.Kind != KindString || r.Kind != KindString {
		return "", "", typeErrorf("%s requires two String, got %s and %s", name, l.Kind, r.Kind)
	}
	return l.Str, r.Str, nil
}

func twoBools(name string, l, r Term) (bool, bool, error) {
	if l.Kind != KindBool || r.Kind != KindBool {
		return false, false, typeErrorf("%s requires two Bool, got %s and %s", name, l.Kind, r.Kind)
	}
	return l.B, r.B, nil
}

func evalRegex(l, r Term, allowRegexes bool) (Term, error) {
	if !allowRegexes {
		return Term{}, typeErrorf("regex operator disabled by limits.allow_regexes")
	}
	subject, pattern, err := twoStrings("matches", l, r)
	if err != nil {
		return Term{}, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Term{}, typeErrorf("invalid regex %q: %v", pattern, err)
	}
	return Bool(re.MatchString(subject)), nil
}

func evalContains(l, r Term) (Term, error) {
	switch {
	case l.Kind == KindSet && r.Kind == KindSet:
		return Bool(isSuperset(l.Set, r.Set)), nil
	case l.Kind == KindSet:
		if r.Kind == KindSet || r.Kind == KindVariable {
			return Term{}, typeErrorf("contains scalar operand must not be Set or Variable, got %s", r.Kind)
		}
		for _, e := range l.Set {
			if structuralEqual(e, r) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	default:
		return Term{}, typeErrorf("contains requires a Set on the left, got %s", l.Kind)
	}
}

func isSuperset(super, sub []Term) bool {
	for _, e := range sub {
		found := false
		for _, s := range super {
			if structuralEqual(s, e) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func evalSetOp(l, r Term, f func(a, b []Term) []Term) (Term, error) {
	if l.Kind != KindSet || r.Kind != KindSet {
		return Term{}, typeErrorf("set operator requires two Set, got %s and %s", l.Kind, r.Kind)
	}
	return Term{Kind: KindSet, Set: f(l.Set, r.Set)}, nil
}

func intersectSets(a, b []Term) []Term {
	var out []Term
	for _, e := range a {
		for _, f := range b {
			if structuralEqual(e, f) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func unionSets(a, b []Term) []Term {
	t, _ := NewSet(append(append([]Term{}, a...), b...)...)
	return t.Set
}
