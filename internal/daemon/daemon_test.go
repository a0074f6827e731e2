package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/detect"
	"clipforge/internal/media"
	"clipforge/internal/orchestrator"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/testsupport"
)

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config, *media.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	handle := testsupport.MustOpenDB(t, cfg)
	store := queue.NewStore(handle, time.Duration(cfg.Workflow.LeaseSeconds)*time.Second)
	catalog := media.NewStore(handle)
	ledger := orchestrator.NewLedger(handle)
	coord := orchestrator.New(cfg, store, catalog, ledger, nil, nil)
	pool := daemon.NewPool(cfg, store, nil,
		detect.NewExecutor(catalog, nil),
		render.NewExecutor(render.NullSubmitter{}, catalog, nil),
	)

	d, err := daemon.New(cfg, store, coord, pool, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, cfg, catalog
}

func startDaemon(t *testing.T, d *daemon.Daemon) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d.APIAddr()
}

func TestDaemonSingleInstance(t *testing.T) {
	d, cfg, _ := newTestDaemon(t)
	startDaemon(t, d)

	handle := testsupport.MustOpenDB(t, cfg)
	store := queue.NewStore(handle, time.Minute)
	catalog := media.NewStore(handle)
	coord := orchestrator.New(cfg, store, catalog, orchestrator.NewLedger(handle), nil, nil)
	second, err := daemon.New(cfg, store, coord, daemon.NewPool(cfg, store, nil), nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance should fail to start")
	}
}

func TestAPIOrchestrateEndToEnd(t *testing.T) {
	d, _, catalog := newTestDaemon(t)
	addr := startDaemon(t, d)

	// Seed a transcript so scoring runs synchronously.
	ctx := context.Background()
	_, med, _, err := catalog.ResolveOrCreate(ctx, "user-1", "https://videos.example.com/api-run", "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	segments := []media.Segment{
		{StartMS: 0, EndMS: 10000, Text: "the launch keynote opens with the launch demo", Confidence: 0.9},
		{StartMS: 10000, EndMS: 20000, Text: "pricing and availability details follow", Confidence: 0.85},
		{StartMS: 20000, EndMS: 30000, Text: "closing remarks and thanks", Confidence: 0.9},
	}
	if err := catalog.ReplaceSegments(ctx, med.ID, segments); err != nil {
		t.Fatalf("seed segments: %v", err)
	}

	body, _ := json.Marshal(orchestrator.Request{
		OwnerSubject:   "user-1",
		URL:            "https://videos.example.com/api-run",
		IdempotencyKey: "api-key-1",
	})
	resp, err := http.Post("http://"+addr+"/api/orchestrate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post orchestrate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var record orchestrator.Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.MediaID != med.ID {
		t.Errorf("record media = %s, want %s", record.MediaID, med.ID)
	}
	if record.Computed == 0 {
		t.Error("expected computed recommendations from seeded transcript")
	}

	// Replay with the same key over HTTP returns the same job handles.
	resp2, err := http.Post("http://"+addr+"/api/orchestrate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer resp2.Body.Close()
	var replay orchestrator.Record
	if err := json.NewDecoder(resp2.Body).Decode(&replay); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replay.DetectJob.JobID != record.DetectJob.JobID {
		t.Errorf("replay detect job %d != %d", replay.DetectJob.JobID, record.DetectJob.JobID)
	}
}

func TestAPIOrchestrateValidationStatus(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	addr := startDaemon(t, d)

	resp, err := http.Post("http://"+addr+"/api/orchestrate", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPIStatusAndQueueEndpoints(t *testing.T) {
	d, cfg, _ := newTestDaemon(t)
	addr := startDaemon(t, d)

	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("daemon should report running")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Errorf("database path = %q", status.DatabasePath)
	}

	resp2, err := http.Get("http://" + addr + "/api/queue/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	defer resp2.Body.Close()
	var stats map[string]int
	if err := json.NewDecoder(resp2.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if _, ok := stats["total"]; !ok {
		t.Errorf("stats missing total: %v", stats)
	}

	resp3, err := http.Get("http://" + addr + "/api/queue?status=bogus")
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown status filter should 400, got %d", resp3.StatusCode)
	}
}

func TestAPITokenAuth(t *testing.T) {
	d, _, _ := newTestDaemon(t, func(c *config.Config) {
		c.Paths.APIToken = "secret-token"
	})
	addr := startDaemon(t, d)

	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/api/status", addr), nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized get: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("authorized status = %d, want 200", resp2.StatusCode)
	}
}
