package revocation

import (
	"context"
	"errors"
	"testing"

	"github.com/biscuit-auth/biscuit/datalog"
)

func TestChecker_ReportsRevokedAndNotRevoked(t *testing.T) {
	store := NewMemoryStore()
	checker := Checker(store, nil)

	id := []byte("block-1")

	status, err := checker(context.Background(), id)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	if status != datalog.NotRevoked {
		t.Errorf("status = %v, want NotRevoked before Revoke", status)
	}

	if err := store.Revoke(context.Background(), id); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	status, err = checker(context.Background(), id)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	if status != datalog.Revoked {
		t.Errorf("status = %v, want Revoked after Revoke", status)
	}
}

type erroringStore struct{ err error }

func (s erroringStore) Revoke(context.Context, []byte) error   { return nil }
func (s erroringStore) Unrevoke(context.Context, []byte) error { return nil }
func (s erroringStore) IsRevoked(context.Context, []byte) (bool, error) {
	return false, s.err
}
func (s erroringStore) Close() error { return nil }

func TestChecker_PropagatesStoreError(t *testing.T) {
	wantErr := errors.New("database is gone")
	checker := Checker(erroringStore{err: wantErr}, nil)

	_, err := checker(context.Background(), []byte("block-1"))
	if !errors.Is(err, wantErr) {
		t.Errorf("checker error = %v, want %v", err, wantErr)
	}
}

func TestChecker_MetricsWithNilRegistererDoesNotPanic(t *testing.T) {
	store := NewMemoryStore()
	checker := Checker(store, NewMetrics(nil))

	if _, err := checker(context.Background(), []byte("block-1")); err != nil {
		t.Fatalf("checker: %v", err)
	}
}
