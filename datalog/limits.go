package datalog

import (
	"context"
	"fmt"
	"time"
)

// RevocationStatus is the answer an external revocation checker gives for
// one block's unique revocation id.
type RevocationStatus uint8

const (
	NotRevoked RevocationStatus = iota
	Revoked
)

// RevocationChecker is the external collaborator contract: given a
// unique revocation id, answer whether it has been revoked. A non-nil
// error is treated as an I/O failure distinct from an explicit Revoked
// answer; Verify surfaces it wrapped as an execution error.
type RevocationChecker func(ctx context.Context, uniqueID []byte) (RevocationStatus, error)

// Limits carries the resource-limit regime, which is itself part
// of the security boundary: it bounds how much work the fixpoint
// evaluator may do and gates optional, potentially expensive or
// block-breaking features.
type Limits struct {
	// MaxFacts is the hard ceiling on the fact set size at any point
	// after a merge. Default: 1000.
	MaxFacts int

	// MaxIterations is the maximum number of fixpoint passes. Default: 100.
	MaxIterations int

	// MaxTime is the wall-clock deadline for the entire verification
	// call, covering assembly, fixpoint evaluation and matching.
	// Default: 1000 microseconds.
	MaxTime time.Duration

	// AllowRegexes gates the Regex expression operator. Default: true.
	AllowRegexes bool

	// AllowBlockFacts gates inclusion of attenuation blocks' facts and
	// rules in the World. Default: true.
	AllowBlockFacts bool

	// CheckRevocationID is invoked once per block, in block order, before
	// fixpoint evaluation begins. A nil checker treats every block as
	// not revoked.
	CheckRevocationID RevocationChecker
}

// DefaultLimits returns the default resource-limit regime.
func DefaultLimits() Limits {
	return Limits{
		MaxFacts:        1000,
		MaxIterations:   100,
		MaxTime:         1000 * time.Microsecond,
		AllowRegexes:    true,
		AllowBlockFacts: true,
	}
}

// Validate reports a configuration error for limits that cannot possibly
// be honored (non-positive bounds), so misconfiguration is caught at
// construction rather than surfacing as a confusing runtime failure.
func (l Limits) Validate() error {
	if l.MaxFacts <= 0 {
		return fmt.Errorf("datalog: max_facts must be positive, got %d", l.MaxFacts)
	}
	if l.MaxIterations <= 0 {
		return fmt.Errorf("datalog: max_iterations must be positive, got %d", l.MaxIterations)
	}
	if l.MaxTime <= 0 {
		return fmt.Errorf("datalog: max_time must be positive, got %s", l.MaxTime)
	}
	return nil
}
