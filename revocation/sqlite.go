package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo
)

// SQLiteStore implements Store with durable persistence, so a process
// restart does not forget revoked tokens. It runs WAL mode with a single
// writer connection and a periodic checkpoint goroutine.
type SQLiteStore struct {
	db   *sql.DB
	done chan struct{}

	mu        sync.Mutex
	closeOnce sync.Once

	revokeStmt    *sql.Stmt
	unrevokeStmt  *sql.Stmt
	isRevokedStmt *sql.Stmt
}

// SQLiteConfig configures SQLiteStore.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes.
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteStore opens dbPath with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig opens a SQLiteStore per cfg, applying defaults
// for any zero-valued field.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("revocation: db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("revocation: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite only supports a single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, done: make(chan struct{})}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("revocation: init schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("revocation: prepare statements: %w", err)
	}

	go s.checkpointLoop(cfg.CheckpointInterval)

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS revoked_ids (
			unique_id TEXT PRIMARY KEY,
			revoked_at INTEGER NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error
	s.revokeStmt, err = s.db.Prepare(`
		INSERT INTO revoked_ids (unique_id, revoked_at)
		VALUES (?, ?)
		ON CONFLICT (unique_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("revoke statement: %w", err)
	}

	s.unrevokeStmt, err = s.db.Prepare(`DELETE FROM revoked_ids WHERE unique_id = ?`)
	if err != nil {
		return fmt.Errorf("unrevoke statement: %w", err)
	}

	s.isRevokedStmt, err = s.db.Prepare(`SELECT 1 FROM revoked_ids WHERE unique_id = ?`)
	if err != nil {
		return fmt.Errorf("is_revoked statement: %w", err)
	}

	return nil
}

// Revoke persists uniqueID as revoked. Revoking an already-revoked id is
// not an error.
func (s *SQLiteStore) Revoke(ctx context.Context, uniqueID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.revokeStmt.ExecContext(ctx, encodeID(uniqueID), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("revocation: revoke: %w", err)
	}
	return nil
}

// Unrevoke removes uniqueID from the revoked set, if present.
func (s *SQLiteStore) Unrevoke(ctx context.Context, uniqueID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.unrevokeStmt.ExecContext(ctx, encodeID(uniqueID))
	if err != nil {
		return fmt.Errorf("revocation: unrevoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether uniqueID has been revoked.
func (s *SQLiteStore) IsRevoked(ctx context.Context, uniqueID []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var one int
	err := s.isRevokedStmt.QueryRowContext(ctx, encodeID(uniqueID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation: is_revoked: %w", err)
	}
	return true, nil
}

// Close stops the checkpoint loop and releases the database handle. It is
// idempotent and safe to call more than once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.revokeStmt != nil {
			s.revokeStmt.Close()
		}
		if s.unrevokeStmt != nil {
			s.unrevokeStmt.Close()
		}
		if s.isRevokedStmt != nil {
			s.isRevokedStmt.Close()
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}

func (s *SQLiteStore) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
