package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"extrad/internal/config"
	"extrad/internal/deps"
	"extrad/internal/history"
	"extrad/internal/ingest"
	"extrad/internal/logging"
	"extrad/internal/queue"
	"extrad/internal/worker"
)

// Daemon ties the queue, workflow loop, and API server into a single
// lifecycle with flock-based locking to prevent multiple instances.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *queue.Queue
	workflow *worker.Manager
	ingest   *ingest.Adapter
	store    *history.Store

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	QueueDepth    int
	LockFilePath  string
	HistoryDBPath string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies. The history store
// may be nil.
func New(cfg *config.Config, q *queue.Queue, wf *worker.Manager, adapter *ingest.Adapter, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || q == nil || wf == nil || adapter == nil {
		return nil, errors.New("daemon requires config, queue, workflow manager, and ingest adapter")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.FieldComponent, "daemon"),
		queue:    q,
		workflow: wf,
		ingest:   adapter,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches background processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another extrad instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the status endpoint and CLI.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		QueueDepth:    d.queue.Count(),
		LockFilePath:  d.lockPath,
		HistoryDBPath: d.cfg.HistoryDBPath(),
		Dependencies:  deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}
