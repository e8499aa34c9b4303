// Package revocation implements the external revocation-checking
// collaborator the datalog engine's Limits.CheckRevocationID contract
// expects: given a unique revocation id, answer whether a block has been
// revoked. The engine itself never persists anything; the stores here are
// the piece of the surrounding system that does.
package revocation

import (
	"context"
	"encoding/hex"

	"github.com/biscuit-auth/biscuit/datalog"
)

// Store is the interface the two concrete backends (Memory, SQLite)
// implement. Revoke and IsRevoked operate on the raw unique revocation id
// bytes carried by a block.
type Store interface {
	Revoke(ctx context.Context, uniqueID []byte) error
	Unrevoke(ctx context.Context, uniqueID []byte) error
	IsRevoked(ctx context.Context, uniqueID []byte) (bool, error)
	Close() error
}

// Checker adapts a Store to the datalog.RevocationChecker function type
// Verify calls once per block. metrics may be nil, in which case checks
// are simply not recorded.
func Checker(store Store, metrics *Metrics) datalog.RevocationChecker {
	return func(ctx context.Context, uniqueID []byte) (datalog.RevocationStatus, error) {
		revoked, err := store.IsRevoked(ctx, uniqueID)
		metrics.RecordCheck(revoked, err)
		if err != nil {
			return datalog.NotRevoked, err
		}
		if revoked {
			return datalog.Revoked, nil
		}
		return datalog.NotRevoked, nil
	}
}

// encodeID renders a unique revocation id as the lowercase hex string both
// backends use as their storage key, so ids round-trip exactly regardless
// of which bytes a signature scheme happens to produce.
func encodeID(id []byte) string { return hex.EncodeToString(id) }
