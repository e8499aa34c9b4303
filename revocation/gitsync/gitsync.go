// Package gitsync keeps a revocation.MemoryStore in sync with a file
// checked into a git repository, the way a fleet of verifiers can share
// one canonical revocation list without a database.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	httptransport "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"

	"github.com/biscuit-auth/biscuit/revocation"
)

// Config configures a Syncer.
type Config struct {
	// Repository is the clone URL.
	Repository string

	// Branch is the branch to track.
	Branch string

	// FilePath is the revocation list file's path relative to the
	// repository root.
	FilePath string

	// LocalPath is where the repository is cloned. Defaults to a
	// directory under os.TempDir().
	LocalPath string

	// PollInterval is how often to pull for changes. Default: 1 minute.
	PollInterval time.Duration

	// PullTimeout bounds each individual clone/pull. Default: 30s.
	PullTimeout time.Duration

	// Auth is an optional HTTP basic auth credential, for private repos.
	Auth *httptransport.BasicAuth
}

// Syncer periodically pulls Config.Repository and reloads a MemoryStore
// from the revocation list file it carries.
type Syncer struct {
	config  Config
	store   *revocation.MemoryStore
	metrics *revocation.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// New creates a Syncer. A nil logger defaults to slog.Default(); a nil
// metrics disables recording.
func New(cfg Config, store *revocation.MemoryStore, metrics *revocation.Metrics, logger *slog.Logger) (*Syncer, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("gitsync: repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("gitsync: file path cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "biscuit-revocation-sync")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.PullTimeout == 0 {
		cfg.PullTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{config: cfg, store: store, metrics: metrics, logger: logger}, nil
}

// auth returns the configured transport.AuthMethod, or nil for anonymous.
func (s *Syncer) auth() transport.AuthMethod {
	if s.config.Auth == nil {
		return nil
	}
	return s.config.Auth
}

// clone clones the repository if it isn't present locally, or opens the
// existing checkout and pulls it.
func (s *Syncer) clone(ctx context.Context) error {
	gitDir := filepath.Join(s.config.LocalPath, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalPath)
		if err != nil {
			return fmt.Errorf("gitsync: open existing checkout: %w", err)
		}
		s.repo = repo
		return s.pull(ctx)
	}

	if err := os.MkdirAll(s.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("gitsync: create checkout dir: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.config.PullTimeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.config.LocalPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err != nil {
		return fmt.Errorf("gitsync: clone: %w", err)
	}
	s.repo = repo
	return nil
}

// pull fast-forwards the existing checkout.
func (s *Syncer) pull(ctx context.Context) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitsync: worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.config.PullTimeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       s.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("gitsync: pull: %w", err)
	}
	return nil
}

// SyncOnce clones or pulls the repository and reloads the store from the
// revocation list file it currently carries.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	syncID := uuid.New().String()
	logger := s.logger.With("sync_id", syncID)

	var err error
	if s.repo == nil {
		err = s.clone(ctx)
	} else {
		err = s.pull(ctx)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSync(err)
		}
		return err
	}

	ids, err := readIDList(filepath.Join(s.config.LocalPath, s.config.FilePath))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSync(err)
		}
		return err
	}

	s.store.Replace(ids)
	if s.metrics != nil {
		s.metrics.RecordSync(nil)
		s.metrics.SetSize(len(ids))
	}
	logger.Info("revocation list synced from git", "repository", s.config.Repository, "count", len(ids))
	return nil
}

// Run calls SyncOnce immediately, then every PollInterval, until ctx is
// cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("initial revocation sync failed", "error", err)
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("revocation sync failed", "error", err)
			}
		}
	}
}
