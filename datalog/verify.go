package datalog

import "context"

// Verify is the engine's single entry point: it assembles the world,
// runs the revocation pre-pass, drives the fixpoint to saturation,
// then matches checks and policies against the result. The whole
// call is bounded by limits.MaxTime; the deadline is checked before
// each revocation check, before every fixpoint pass and once more after
// matching, never mid-rule-application.
//
// A non-nil error from Verify is either an execution error (the call
// aborted rather than produced a verdict) or one of the result errors
// (NoPoliciesMatchedError, FailedChecksError, DenyRuleMatchedError),
// which carry a negative verdict alongside a nil Verdict, so callers can
// use a single error check but still distinguish "aborted" from "denied"
// with errors.As.
func Verify(ctx context.Context, verifier Verifier, authority Block, attenuation []Block, limits Limits) (*Verdict, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, limits.MaxTime)
	defer cancel()

	w, err := assembleWorld(verifier, authority, attenuation, limits)
	if err != nil {
		return nil, err
	}

	if err := checkRevocations(ctx, authority, attenuation, limits.CheckRevocationID); err != nil {
		return nil, err
	}

	if err := fixpoint(ctx, w, limits); err != nil {
		return nil, err
	}

	verdict, err := runChecksAndPolicies(w.Facts.Facts(), verifier, authority, attenuation, limits.AllowRegexes)
	if ctx.Err() != nil {
		return nil, &TimeoutError{}
	}
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// checkRevocations invokes checker once per block, authority first then
// attenuation blocks in order, aborting on the first Revoked answer or
// checker error. A nil checker treats every block as not revoked.
func checkRevocations(ctx context.Context, authority Block, attenuation []Block, checker RevocationChecker) error {
	if checker == nil {
		return nil
	}

	blocks := make([]Block, 0, len(attenuation)+1)
	blocks = append(blocks, authority)
	blocks = append(blocks, attenuation...)

	for index, blk := range blocks {
		select {
		case <-ctx.Done():
			return &TimeoutError{}
		default:
		}

		status, err := checker(ctx, blk.UniqueRevocationID)
		if err != nil {
			return &RevocationCheckError{BlockIndex: index, Cause: err}
		}
		if status == Revoked {
			return &RevokedError{BlockIndex: index}
		}
	}
	return nil
}
