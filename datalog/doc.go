// Package datalog implements the bounded naive-evaluation Datalog engine
// that decides allow/deny for a biscuit token.
//
// The package consumes an already-parsed authority block, zero or more
// attenuation blocks and a verifier (each a bundle of facts, rules, checks
// and, for the verifier, policies), assembles them into a World, computes
// the fixpoint of derivable facts under bounded resources, and returns a
// Verdict. Cryptographic signing, wire serialization and the Datalog
// surface syntax parser are external collaborators and are not part of
// this package.
package datalog
