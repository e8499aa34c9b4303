package datalog

import "fmt"

// Execution errors abort the verification call outright. They are
// distinct from the result errors below, which mean evaluation completed
// but produced a negative verdict.

// TimeoutError indicates the deadline in Limits.MaxTime expired before
// verification completed. The in-progress fixpoint pass, if any, ran to
// completion first: the deadline is a soft cancellation.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "datalog: verification deadline exceeded" }

// TooManyFactsError indicates the fact set reached Limits.MaxFacts.
type TooManyFactsError struct {
	Count int
	Max   int
}

func (e *TooManyFactsError) Error() string {
	return fmt.Sprintf("datalog: fact set size %d reached the limit of %d", e.Count, e.Max)
}

// TooManyIterationsError indicates the fixpoint did not converge within
// Limits.MaxIterations passes.
type TooManyIterationsError struct {
	Max int
}

func (e *TooManyIterationsError) Error() string {
	return fmt.Sprintf("datalog: fixpoint did not converge within %d iterations", e.Max)
}

// FactsInBlocksError indicates an attenuation block carries facts or
// rules while Limits.AllowBlockFacts is false.
type FactsInBlocksError struct {
	BlockIndex int
}

func (e *FactsInBlocksError) Error() string {
	return fmt.Sprintf("datalog: block %d carries facts or rules but block facts are disabled", e.BlockIndex)
}

// RevokedError indicates the revocation checker reported a block's
// unique revocation id as revoked.
type RevokedError struct {
	BlockIndex int
}

func (e *RevokedError) Error() string {
	return fmt.Sprintf("datalog: block %d is revoked", e.BlockIndex)
}

// RevocationCheckError wraps an I/O failure from the revocation checker,
// distinct from an explicit Revoked answer.
type RevocationCheckError struct {
	BlockIndex int
	Cause      error
}

func (e *RevocationCheckError) Error() string {
	return fmt.Sprintf("datalog: revocation check failed for block %d: %v", e.BlockIndex, e.Cause)
}

func (e *RevocationCheckError) Unwrap() error { return e.Cause }

// Result errors mean evaluation completed normally but the verdict is
// negative. FailedChecks carries the checks that failed, in input
// order.

// NoPoliciesMatchedError indicates no policy's disjunction was satisfied.
type NoPoliciesMatchedError struct {
	FailedChecks []FailedCheck
}

func (e *NoPoliciesMatchedError) Error() string {
	return fmt.Sprintf("datalog: no policy matched (%d failed checks)", len(e.FailedChecks))
}

// FailedChecksError indicates at least one check failed even though a
// matching Allow policy exists. Checks are hard constraints: a failed
// check combined with a matching Allow never yields success.
type FailedChecksError struct {
	FailedChecks []FailedCheck
}

func (e *FailedChecksError) Error() string {
	return fmt.Sprintf("datalog: %d checks failed", len(e.FailedChecks))
}

// DenyRuleMatchedError indicates a Deny policy matched, with or without
// failed checks.
type DenyRuleMatchedError struct {
	FailedChecks []FailedCheck
	DenyingQuery QueryItem
}

func (e *DenyRuleMatchedError) Error() string {
	return fmt.Sprintf("datalog: a deny policy matched (%d failed checks)", len(e.FailedChecks))
}

// FailedCheck identifies one check that did not hold in the fixpoint, by
// its position among all checks collected from the verifier, the
// authority block and the attenuation blocks, in that order.
type FailedCheck struct {
	Index int
	Check Check
}
