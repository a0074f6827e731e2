package testsupport

import (
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/db"
	"clipforge/internal/queue"
)

// MustOpenDB opens the shared database for a test and closes it on cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *db.Handle {
	t.Helper()
	handle, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if err := handle.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return handle
}

// MustOpenQueue opens a job store over a fresh database.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	handle := MustOpenDB(t, cfg)
	return queue.NewStore(handle, time.Duration(cfg.Workflow.LeaseSeconds)*time.Second)
}
