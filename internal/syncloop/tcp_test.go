/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"context"
	"os"
	"testing"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/schema"
	"syncengine/internal/storage"
	"syncengine/internal/syncapply"
	"syncengine/internal/syncexec"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

func newTCPTestSide(t *testing.T) (*synclog.Store, *schema.Store, *syncexec.Executor, storage.Engine, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "tcptransport-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 16})
	if err != nil {
		t.Fatalf("failed to create storage engine: %v", err)
	}
	log, err := synclog.Open(engine)
	if err != nil {
		t.Fatalf("failed to open synclog store: %v", err)
	}
	if err := log.EnableSyncForTable("todos"); err != nil {
		t.Fatalf("failed to enable table: %v", err)
	}
	schemaStore, err := schema.Open(engine, log)
	if err != nil {
		t.Fatalf("failed to open schema store: %v", err)
	}
	applier := syncapply.NewApplier(engine, log)
	executor := syncexec.NewExecutor(engine, log, applier)
	return log, schemaStore, executor, engine, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestTCPTransportCycleAgainstTCPServer(t *testing.T) {
	serverLog, serverSchema, serverExecutor, serverEngine, cleanupServer := newTCPTestSide(t)
	defer cleanupServer()

	err := txn.Run(serverEngine, func(tx *txn.Transaction) error {
		_, captureErr := serverLog.Capture(tx, "todos", synclog.OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("hello")}, 0)
		return captureErr
	})
	if err != nil {
		t.Fatalf("server capture failed: %v", err)
	}

	server := NewTCPServer("server", serverLog, serverSchema, serverExecutor)
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := server.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx, "")

	transport := NewTCPTransport("client", addr.String())
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer transport.Disconnect(context.Background())

	clientVC := causality.NewVectorClock()
	peerVC, err := transport.ExchangeVectorClock(context.Background(), clientVC)
	if err != nil {
		t.Fatalf("ExchangeVectorClock failed: %v", err)
	}
	var total uint64
	for _, c := range peerVC.Clocks {
		total += c
	}
	if total != 1 {
		t.Errorf("expected the server's clock to report 1 captured op, got %d", total)
	}

	received, err := transport.ReceiveOperations(context.Background())
	if err != nil {
		t.Fatalf("ReceiveOperations failed: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 operation from server, got %d", len(received))
	}

	accepted, err := transport.SendOperations(context.Background(), nil)
	if err != nil {
		t.Fatalf("SendOperations failed: %v", err)
	}
	if accepted != 0 {
		t.Errorf("expected 0 accepted for an empty push, got %d", accepted)
	}
}
