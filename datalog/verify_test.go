package datalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestVerify_SimpleAllow(t *testing.T) {
	authority := Block{
		Facts: []Fact{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
	}
	verifier := Verifier{
		Policies: []Policy{{
			Kind: PolicyAllow,
			Queries: []QueryItem{{
				Body: []Predicate{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
			}},
		}},
	}

	verdict, err := Verify(context.Background(), verifier, authority, nil, DefaultLimits())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if verdict == nil {
		t.Fatalf("expected a non-nil verdict")
	}
}

func TestVerify_AuthorityForgeryFromAttenuationBlockIsIgnored(t *testing.T) {
	authority := Block{
		Facts: []Fact{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
	}
	// An attenuation block tries to inject its own "authority" fact, which
	// the reserved-symbol check must silently drop on ingestion.
	forged := Block{
		Facts: []Fact{{Name: "marker", Terms: []Term{Symbol("authority")}}},
	}
	verifier := Verifier{
		Checks: []Check{{
			Queries: []QueryItem{{
				Body: []Predicate{{Name: "marker", Terms: []Term{Symbol("authority")}}},
			}},
		}},
		Policies: []Policy{{
			Kind: PolicyAllow,
			Queries: []QueryItem{{
				Body: []Predicate{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
			}},
		}},
	}

	_, err := Verify(context.Background(), verifier, authority, []Block{forged}, DefaultLimits())
	if _, ok := err.(*FailedChecksError); !ok {
		t.Fatalf("error = %v, want *FailedChecksError (the forged marker fact must never be admitted)", err)
	}
}

func TestVerify_RevocationAbortsBeforeFixpoint(t *testing.T) {
	authority := Block{
		UniqueRevocationID: []byte("token-1"),
		Facts:              []Fact{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
	}
	verifier := Verifier{
		Policies: []Policy{{
			Kind:    PolicyAllow,
			Queries: []QueryItem{{Body: []Predicate{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}}}},
		}},
	}

	limits := DefaultLimits()
	limits.CheckRevocationID = func(ctx context.Context, uniqueID []byte) (RevocationStatus, error) {
		return Revoked, nil
	}

	_, err := Verify(context.Background(), verifier, authority, nil, limits)
	revokedErr, ok := err.(*RevokedError)
	if !ok {
		t.Fatalf("error = %v, want *RevokedError", err)
	}
	if revokedErr.BlockIndex != 0 {
		t.Errorf("BlockIndex = %d, want 0 (the authority block)", revokedErr.BlockIndex)
	}
}

func TestVerify_RevocationCheckerErrorWraps(t *testing.T) {
	authority := Block{UniqueRevocationID: []byte("token-1")}
	cause := errors.New("store unavailable")

	limits := DefaultLimits()
	limits.CheckRevocationID = func(ctx context.Context, uniqueID []byte) (RevocationStatus, error) {
		return NotRevoked, cause
	}

	_, err := Verify(context.Background(), Verifier{}, authority, nil, limits)
	var rce *RevocationCheckError
	if !errors.As(err, &rce) {
		t.Fatalf("error = %v, want *RevocationCheckError", err)
	}
	if !errors.Is(rce, cause) {
		t.Errorf("RevocationCheckError should unwrap to the checker's cause")
	}
}

func TestVerify_BlockFactsDisabledRejectsNonemptyBlock(t *testing.T) {
	authority := Block{}
	attenuation := []Block{{Facts: []Fact{{Name: "x", Terms: []Term{Int64(1)}}}}}

	limits := DefaultLimits()
	limits.AllowBlockFacts = false

	_, err := Verify(context.Background(), Verifier{}, authority, attenuation, limits)
	fib, ok := err.(*FactsInBlocksError)
	if !ok {
		t.Fatalf("error = %v, want *FactsInBlocksError", err)
	}
	if fib.BlockIndex != 1 {
		t.Errorf("BlockIndex = %d, want 1", fib.BlockIndex)
	}
}

func TestVerify_Timeout(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxTime = time.Nanosecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := Verify(ctx, Verifier{}, Block{}, nil, limits)
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
}

func ExampleVerify() {
	authority := Block{
		Facts: []Fact{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}},
	}
	verifier := Verifier{
		Policies: []Policy{{
			Kind:    PolicyAllow,
			Queries: []QueryItem{{Body: []Predicate{{Name: "right", Terms: []Term{Symbol("alice"), Symbol("read")}}}}},
		}},
	}

	_, err := Verify(context.Background(), verifier, authority, nil, DefaultLimits())
	fmt.Println(err)
	// Output: <nil>
}
