package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/orchestrator"
	"clipforge/internal/queue"
)

// Daemon coordinates the worker pool and API server and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	coord  *orchestrator.Coordinator
	pool   *Pool
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status describes daemon runtime state for the status endpoint and CLI.
type Status struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	DatabasePath string              `json:"databasePath"`
	LockFilePath string              `json:"lockFilePath"`
	Queue        queue.HealthSummary `json:"queue"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, coord *orchestrator.Coordinator, pool *Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || coord == nil || pool == nil {
		return nil, errors.New("daemon requires config, store, coordinator, and pool")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "clipforged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		coord:    coord,
		pool:     pool,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock and launches the pool and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.pool.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workers: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.pool.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	if d.logger != nil {
		d.logger.Info("daemon started", slog.String("lock", d.lockPath))
	}
	return nil
}

// Stop shuts down the API server and the worker pool and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil && d.logger != nil {
		d.logger.Warn("failed to release daemon lock", slog.Any("error", err))
	}
	d.running.Store(false)
	if d.logger != nil {
		d.logger.Info("daemon stopped")
	}
}

// Orchestrate exposes the coordinator to the API layer.
func (d *Daemon) Orchestrate(ctx context.Context, req orchestrator.Request) (*orchestrator.Record, error) {
	return d.coord.Orchestrate(ctx, req)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// QueueHealth returns aggregate queue counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	health, err := d.store.Health(ctx)
	if err != nil && d.logger != nil {
		d.logger.Warn("queue health unavailable", slog.Any("error", err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Queue:        health,
	}
}

// APIAddr returns the bound API address, or "" before Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}
