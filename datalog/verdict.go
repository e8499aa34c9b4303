package datalog

// Verdict is the positive outcome of Verify: the first satisfied query
// item of the winning Allow policy. The policy's other query items are
// not included.
type Verdict struct {
	MatchedQuery QueryItem
}

// runChecksAndPolicies implements the check/policy matcher and the
// verdict selection table. Checks are collected from the verifier, the
// authority block and every attenuation block in that order; the
// failed subset is reported in that same input order. Policies are
// tried in the verifier's declaration order; the first whose disjunction
// has a satisfied query item wins.
func runChecksAndPolicies(facts []Fact, verifier Verifier, authority Block, attenuation []Block, allowRegexes bool) (*Verdict, error) {
	var allChecks []Check
	allChecks = append(allChecks, verifier.Checks...)
	allChecks = append(allChecks, authority.Checks...)
	for _, blk := range attenuation {
		allChecks = append(allChecks, blk.Checks...)
	}

	var failed []FailedCheck
	for i, c := range allChecks {
		if !c.satisfiedBy(facts, allowRegexes) {
			failed = append(failed, FailedCheck{Index: i, Check: c})
		}
	}

	var matchedPolicy *Policy
	var matchedQuery QueryItem
	for i := range verifier.Policies {
		p := verifier.Policies[i]
		if qi, ok := p.matchingQuery(facts, allowRegexes); ok {
			matchedPolicy = &p
			matchedQuery = qi
			break
		}
	}

	checksOK := len(failed) == 0

	switch {
	case checksOK && matchedPolicy != nil && matchedPolicy.Kind == PolicyAllow:
		return &Verdict{MatchedQuery: matchedQuery}, nil

	case checksOK && matchedPolicy == nil:
		return nil, &NoPoliciesMatchedError{FailedChecks: nil}

	case checksOK && matchedPolicy.Kind == PolicyDeny:
		return nil, &DenyRuleMatchedError{FailedChecks: nil, DenyingQuery: matchedQuery}

	case !checksOK && matchedPolicy == nil:
		return nil, &NoPoliciesMatchedError{FailedChecks: failed}

	case !checksOK && matchedPolicy.Kind == PolicyDeny:
		return nil, &DenyRuleMatchedError{FailedChecks: failed, DenyingQuery: matchedQuery}

	default: // !checksOK && matchedPolicy.Kind == PolicyAllow
		return nil, &FailedChecksError{FailedChecks: failed}
	}
}
