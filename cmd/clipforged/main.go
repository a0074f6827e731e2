package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/db"
	"clipforge/internal/detect"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/orchestrator"
	"clipforge/internal/queue"
	"clipforge/internal/render"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	handle, err := db.Open(cfg)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		return
	}
	defer handle.Close()

	store := queue.NewStore(handle, time.Duration(cfg.Workflow.LeaseSeconds)*time.Second)
	catalog := media.NewStore(handle)
	ledger := orchestrator.NewLedger(handle)
	coord := orchestrator.New(cfg, store, catalog, ledger, nil, logging.WithComponent(logger, "orchestrator"))

	pool := daemon.NewPool(cfg, store, logging.WithComponent(logger, "workers"),
		detect.NewExecutor(catalog, logging.WithComponent(logger, "detect")),
		render.NewExecutor(render.NullSubmitter{}, catalog, logging.WithComponent(logger, "render")),
	)

	d, err := daemon.New(cfg, store, coord, pool, logger)
	if err != nil {
		logger.Error("create daemon", slog.Any("error", err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", slog.Any("error", err))
		return
	}

	<-ctx.Done()
	logger.Info("clipforged shutting down")
	d.Stop()
}
