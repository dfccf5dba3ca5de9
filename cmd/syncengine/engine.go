/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"fmt"

	"syncengine/internal/audit"
	"syncengine/internal/config"
	"syncengine/internal/resolver"
	"syncengine/internal/schema"
	"syncengine/internal/storage"
	"syncengine/internal/syncapply"
	"syncengine/internal/syncexec"
	"syncengine/internal/synclog"
	"syncengine/internal/syncloop"
)

// app bundles every component a subcommand needs, wired the same way
// for every entry point (start, sync, status, resolve, migrate, peers,
// snapshot) so no two commands open the data directory differently.
type app struct {
	cfg      *config.Config
	engine   storage.StorageEngine
	log      *synclog.Store
	schema   *schema.Store
	applier  *syncapply.Applier
	executor *syncexec.Executor
	resolver *resolver.Registry
	peers    *syncloop.PeerStore
	audit    *audit.Manager
}

// openApp opens the data directory named by cfg.DataDir and wires up
// every package the engine relies on. Callers must defer app.Close().
func openApp(cfg *config.Config) (*app, error) {
	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}

	log, err := synclog.Open(engine)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("open sync log: %w", err)
	}
	schemaStore, err := schema.Open(engine, log)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("open schema store: %w", err)
	}
	applier := syncapply.NewApplier(engine, log)
	executor := syncexec.NewExecutor(engine, log, applier)
	registry := resolver.NewRegistry(engine, log)
	peers := syncloop.NewPeerStore(engine)

	auditMgr := audit.NewManager(engine, audit.DefaultConfig())
	schemaStore.SetAuditManager(auditMgr)
	executor.SetAuditManager(auditMgr)
	registry.SetAuditManager(auditMgr)

	return &app{
		cfg:      cfg,
		engine:   engine,
		log:      log,
		schema:   schemaStore,
		applier:  applier,
		executor: executor,
		resolver: registry,
		peers:    peers,
		audit:    auditMgr,
	}, nil
}

func (a *app) Close() {
	a.audit.Stop()
	a.engine.Close()
}

// loadConfig applies the file-then-env precedence config.Manager
// implements: an explicit --config flag wins, SYNCENGINE_* env vars
// layer on top of whatever was loaded (or the defaults, if nothing
// was).
func loadConfig(configPath string) (*config.Manager, error) {
	mgr := config.NewManager()
	if configPath != "" {
		if err := mgr.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}
	mgr.LoadFromEnv()
	return mgr, nil
}
