// Package worker supervises the long-lived consumer loops. Each worker is
// guarded by a file lock so that at most one instance of a given worker runs
// on a host, matching the single-consumer assumption of the queue channel.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Worker is a long-lived loop that runs until its context is cancelled or
// its input channel is shut down.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner starts workers under per-name advisory locks and waits for them.
type Runner struct {
	lockDir string
	logger  *slog.Logger

	wg sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

// NewRunner creates a runner placing lock files under lockDir.
func NewRunner(lockDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{lockDir: lockDir, logger: logger}
}

// Start acquires the worker's lock and launches its loop. A held lock means
// another instance owns this worker; the caller should treat that as fatal
// rather than run a second consumer.
func (r *Runner) Start(ctx context.Context, w Worker) error {
	path := filepath.Join(r.lockDir, "relay-"+w.Name()+".lock")
	lk := flock.New(path)

	locked, err := lk.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring %s lock: %w", w.Name(), err)
	}
	if !locked {
		return fmt.Errorf("worker %s already running (lock held at %s)", w.Name(), path)
	}

	r.logger.Info("worker started", "worker", w.Name(), "lock", path)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := lk.Unlock(); err != nil {
				r.logger.Error("worker lock release failed", "worker", w.Name(), "err", err)
			}
		}()

		if err := w.Run(ctx); err != nil {
			r.logger.Error("worker exited with error", "worker", w.Name(), "err", err)
			r.record(err)
			return
		}
		r.logger.Info("worker stopped", "worker", w.Name())
	}()
	return nil
}

// Wait blocks until every started worker has exited and returns the first
// worker error, if any.
func (r *Runner) Wait() error {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}

func (r *Runner) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		r.firstErr = err
	}
}
