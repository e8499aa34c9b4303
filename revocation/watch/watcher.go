// Package watch reloads a revocation.MemoryStore from a flat file of
// hex-encoded unique revocation ids whenever that file changes on disk.
package watch

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/biscuit-auth/biscuit/revocation"
)

// Config configures a Watcher.
type Config struct {
	// Path is the revocation list file to watch: one hex-encoded unique
	// revocation id per line, blank lines and lines starting with '#'
	// ignored.
	Path string

	// DebounceInterval is how long to wait for writes to settle before
	// reloading. Default: 100ms.
	DebounceInterval time.Duration
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{DebounceInterval: 100 * time.Millisecond}
}

// Watcher watches Config.Path and reloads store on change, debouncing
// bursts of writes into a single reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *revocation.MemoryStore
	metrics *revocation.Metrics
	logger  *slog.Logger
	config  *Config

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Watcher that keeps store up to date from config.Path. A
// nil logger defaults to slog.Default(); a nil metrics disables recording.
func New(config *Config, store *revocation.MemoryStore, metrics *revocation.Metrics, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: fsw,
		store:   store,
		metrics: metrics,
		logger:  logger,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Run loads the file once, then blocks watching for changes until ctx is
// cancelled or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watch: watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.reload(); err != nil {
		w.logger.Error("initial revocation list load failed", "path", w.config.Path, "error", err)
	}

	if err := w.watcher.Add(w.config.Path); err != nil {
		return fmt.Errorf("watch: watch %s: %w", w.config.Path, err)
	}

	w.logger.Info("revocation list watcher started", "path", w.config.Path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watch: events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.debounce()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watch: errors channel closed")
			}
			w.logger.Error("revocation list watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher, waits for Run to return and closes its
// fsnotify handle. If the watcher is not running, Stop does nothing and
// the handle is left open.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, func() {
		if err := w.reload(); err != nil {
			w.logger.Error("revocation list reload failed", "path", w.config.Path, "error", err)
		}
	})
}

func (w *Watcher) reload() error {
	ids, err := readIDList(w.config.Path)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordSync(err)
		}
		return err
	}
	w.store.Replace(ids)
	if w.metrics != nil {
		w.metrics.RecordSync(nil)
		w.metrics.SetSize(len(ids))
	}
	w.logger.Info("revocation list reloaded", "path", w.config.Path, "count", len(ids))
	return nil
}

// readIDList parses a revocation list file: one hex-encoded id per
// non-blank, non-comment line.
func readIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watch: open %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("watch: read %s: %w", path, err)
	}
	return ids, nil
}
