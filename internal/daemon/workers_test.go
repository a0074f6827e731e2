package daemon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipforge/internal/daemon"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

type stubExecutor struct {
	kind queue.Kind
	fail error

	mu   sync.Mutex
	seen []int64
}

func (s *stubExecutor) Kind() queue.Kind { return s.kind }

func (s *stubExecutor) Execute(_ context.Context, job *queue.Job) (string, error) {
	s.mu.Lock()
	s.seen = append(s.seen, job.ID)
	s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	return `{"ok":true}`, nil
}

func (s *stubExecutor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func waitForTerminal(t *testing.T, store *queue.Store, id int64) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get job %d: %v", id, err)
		}
		if job != nil && job.Terminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d never reached a terminal status", id)
	return nil
}

func TestPoolDrainsQueuedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		job, err := store.Enqueue(ctx, queue.KindDetect, "{}")
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		ids = append(ids, job.ID)
	}

	exec := &stubExecutor{kind: queue.KindDetect}
	pool := daemon.NewPool(cfg, store, nil, exec)
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	defer pool.Stop()

	for _, id := range ids {
		job := waitForTerminal(t, store, id)
		if job.Status != queue.StatusDone {
			t.Errorf("job %d status = %s, want done", id, job.Status)
		}
		if job.Result == "" {
			t.Errorf("job %d has no stored result", id)
		}
	}
	if exec.count() != len(ids) {
		t.Errorf("executor ran %d times, want %d", exec.count(), len(ids))
	}
}

func TestPoolRecordsExecutorFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, queue.KindRender, "{}")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	exec := &stubExecutor{kind: queue.KindRender, fail: errors.New("backend unavailable")}
	pool := daemon.NewPool(cfg, store, nil, exec)
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	defer pool.Stop()

	finished := waitForTerminal(t, store, job.ID)
	if finished.Status != queue.StatusError {
		t.Fatalf("status = %s, want error", finished.Status)
	}
	if finished.ErrorMessage != "backend unavailable" {
		t.Errorf("error message = %q", finished.ErrorMessage)
	}
}

func TestPoolFailsJobWithoutExecutor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, queue.KindTranscribe, "{}")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pool := daemon.NewPool(cfg, store, nil, &stubExecutor{kind: queue.KindDetect})
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	defer pool.Stop()

	finished := waitForTerminal(t, store, job.ID)
	if finished.Status != queue.StatusError {
		t.Fatalf("status = %s, want error", finished.Status)
	}
}

func TestPoolStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	pool := daemon.NewPool(cfg, store, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer pool.Stop()
	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
}
