package main

import "github.com/biscuit-auth/biscuit/datalog"

// exitCodeError pairs an error with the process exit code it should
// produce, matching the three-way execution/result/success split:
// 2 for an execution error (the call aborted), 1 for a result error (the
// call completed with a negative verdict), 0 for success.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// withExitCode classifies a datalog.Verify error into the matching exit
// code and wraps it so Execute can recover the code with errors.As. A nil
// err passes through unchanged.
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *datalog.NoPoliciesMatchedError, *datalog.FailedChecksError, *datalog.DenyRuleMatchedError:
		return &exitCodeError{code: 1, err: err}
	default:
		return &exitCodeError{code: 2, err: err}
	}
}
