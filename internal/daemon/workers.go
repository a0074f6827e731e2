package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// Executor handles one job kind. Execute returns the JSON result payload to
// store on success.
type Executor interface {
	Kind() queue.Kind
	Execute(ctx context.Context, job *queue.Job) (string, error)
}

// Pool polls the queue and dispatches claimed jobs to registered executors.
type Pool struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	executors map[queue.Kind]Executor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool registers executors by kind and prepares the worker pool.
func NewPool(cfg *config.Config, store *queue.Store, logger *slog.Logger, executors ...Executor) *Pool {
	byKind := make(map[queue.Kind]Executor, len(executors))
	for _, exec := range executors {
		byKind[exec.Kind()] = exec
	}
	return &Pool{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		executors: byKind,
	}
}

// Start launches the worker goroutines and the lease reclaimer.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	workers := p.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, i)
	}
	p.wg.Add(1)
	go p.reclaimLoop(runCtx)

	if p.logger != nil {
		p.logger.Info("worker pool started", slog.Int("workers", workers))
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	if p.logger != nil {
		p.logger.Info("worker pool stopped")
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	interval := time.Duration(p.cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		job, err := p.store.ClaimNext(ctx)
		switch {
		case err != nil:
			if ctx.Err() == nil && p.logger != nil {
				p.logger.Error("claim failed",
					slog.Int("worker", id),
					slog.Any("error", err))
			}
			timer.Reset(interval)
		case job == nil:
			timer.Reset(interval)
		default:
			p.dispatch(ctx, id, job)
			// Immediately look for the next job while the queue has work.
			timer.Reset(0)
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, workerID int, job *queue.Job) {
	exec, ok := p.executors[job.Kind]
	if !ok {
		p.finishError(ctx, job, fmt.Sprintf("no executor registered for kind %q", job.Kind))
		return
	}

	if p.logger != nil {
		p.logger.Info("job started",
			slog.Int("worker", workerID),
			slog.Int64("job_id", job.ID),
			slog.String("kind", string(job.Kind)),
			slog.Int("attempt", job.Attempts))
	}

	result, err := exec.Execute(ctx, job)
	if err != nil {
		p.finishError(ctx, job, err.Error())
		return
	}

	if err := p.store.MarkDone(ctx, job.ID, result); err != nil {
		if errors.Is(err, queue.ErrNotRunning) {
			// The lease expired mid-flight and the job was reclaimed. Another
			// worker owns it now; this result is discarded.
			if p.logger != nil {
				p.logger.Warn("job finished after lease loss", slog.Int64("job_id", job.ID))
			}
			return
		}
		if p.logger != nil {
			p.logger.Error("mark done failed",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err))
		}
		return
	}
	if p.logger != nil {
		p.logger.Info("job done", slog.Int64("job_id", job.ID), slog.String("kind", string(job.Kind)))
	}
}

func (p *Pool) finishError(ctx context.Context, job *queue.Job, message string) {
	if err := p.store.MarkError(ctx, job.ID, message); err != nil && !errors.Is(err, queue.ErrNotRunning) {
		if p.logger != nil {
			p.logger.Error("mark error failed",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err))
		}
		return
	}
	if p.logger != nil {
		p.logger.Warn("job failed",
			slog.Int64("job_id", job.ID),
			slog.String("kind", string(job.Kind)),
			slog.String("error", message))
	}
}

func (p *Pool) reclaimLoop(ctx context.Context) {
	defer p.wg.Done()

	interval := time.Duration(p.cfg.Workflow.ReclaimInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		count, err := p.store.ReclaimExpired(ctx)
		if err != nil {
			if ctx.Err() == nil && p.logger != nil {
				p.logger.Error("reclaim failed", slog.Any("error", err))
			}
			continue
		}
		if count > 0 && p.logger != nil {
			p.logger.Warn("reclaimed expired leases", slog.Int64("count", count))
		}
	}
}
