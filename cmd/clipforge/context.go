package main

import (
	"fmt"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/db"
	"clipforge/internal/media"
	"clipforge/internal/orchestrator"
	"clipforge/internal/queue"
)

// commandContext lazily loads configuration and opens the shared database so
// commands that never touch the store (config init, version) stay cheap.
type commandContext struct {
	configFlag *string

	cfg        *config.Config
	configPath string
	handle     *db.Handle
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.configPath = resolvedPath
	return cfg, nil
}

func (c *commandContext) ensureHandle() (*db.Handle, error) {
	if c.handle != nil {
		return c.handle, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	handle, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.handle = handle
	return handle, nil
}

func (c *commandContext) queueStore() (*queue.Store, error) {
	handle, err := c.ensureHandle()
	if err != nil {
		return nil, err
	}
	return queue.NewStore(handle, time.Duration(c.cfg.Workflow.LeaseSeconds)*time.Second), nil
}

func (c *commandContext) coordinator() (*orchestrator.Coordinator, error) {
	handle, err := c.ensureHandle()
	if err != nil {
		return nil, err
	}
	store := queue.NewStore(handle, time.Duration(c.cfg.Workflow.LeaseSeconds)*time.Second)
	catalog := media.NewStore(handle)
	ledger := orchestrator.NewLedger(handle)
	return orchestrator.New(c.cfg, store, catalog, ledger, nil, nil), nil
}

func (c *commandContext) Close() error {
	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	return err
}
