// Command biscuitctl operates a biscuit verifier's supporting
// infrastructure: the revocation list and the resource limits that bound
// the Datalog evaluation engine. It does not parse or verify tokens
// itself; token serialization and signature checking are the job of a
// separate crypto/wire layer this CLI does not implement.
//
// Usage:
//
//	# Show version information
//	biscuitctl version
//
//	# Run datalog.Verify against a JSON fixture and print the verdict
//	biscuitctl verify fixtures/allow.json
//
//	# Check whether a unique revocation id is revoked
//	biscuitctl revocation check --store revoked.db --id a1b2c3
//
//	# Add an id to a revocation list
//	biscuitctl revocation add --store revoked.db --id a1b2c3
//
//	# Sync a revocation list from git and report the result
//	biscuitctl revocation sync --repo https://example.com/revocations.git --file revoked.txt
//
//	# Keep a revocation list current by watching a file, until interrupted
//	biscuitctl serve --watch-file revoked.txt
//
//	# Run a synthetic Datalog workload to measure fixpoint performance
//	biscuitctl bench --facts 500 --rules 20
package main

func main() {
	Execute()
}
