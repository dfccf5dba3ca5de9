/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"syncengine/internal/causality"
	syncerrors "syncengine/internal/errors"
	"syncengine/internal/schema"
	"syncengine/internal/storage"
	"syncengine/internal/syncapply"
	"syncengine/internal/syncexec"
	"syncengine/internal/synclog"
)

// fakeTransport is an in-process stand-in satisfying the Transport
// contract for tests, with no real network.
type fakeTransport struct {
	peerVC     *causality.VectorClock
	toDeliver  []*synclog.Operation
	connectErr error
	sent       []*synclog.Operation
	connected  bool
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}
func (f *fakeTransport) Disconnect(ctx context.Context) error { f.connected = false; return nil }
func (f *fakeTransport) ExchangeVectorClock(ctx context.Context, local *causality.VectorClock) (*causality.VectorClock, error) {
	if f.peerVC == nil {
		return causality.NewVectorClock(), nil
	}
	return f.peerVC, nil
}
func (f *fakeTransport) SendOperations(ctx context.Context, ops []*synclog.Operation) (int, error) {
	f.sent = append(f.sent, ops...)
	return len(ops), nil
}
func (f *fakeTransport) ReceiveOperations(ctx context.Context) ([]*synclog.Operation, error) {
	return f.toDeliver, nil
}

func newTestLoop(t *testing.T, transport Transport) (*Loop, *synclog.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "syncloop-test-*")
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
	peers := NewPeerStore(engine)

	loop := NewLoop("peer-1", transport, log, schemaStore, executor, peers, Config{
		Interval:    time.Hour,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
	})
	return loop, log, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestSyncNowSucceedsWithNoWork(t *testing.T) {
	loop, _, cleanup := newTestLoop(t, &fakeTransport{})
	defer cleanup()

	if err := loop.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if loop.State() != StateIdle {
		t.Errorf("expected StateIdle after a clean cycle, got %s", loop.State())
	}
}

func TestSyncNowTransportErrorEntersWaitingRetry(t *testing.T) {
	transport := &fakeTransport{connectErr: errors.New("connection refused")}
	loop, _, cleanup := newTestLoop(t, transport)
	defer cleanup()

	if err := loop.SyncNow(context.Background()); err == nil {
		t.Fatal("expected SyncNow to surface the transport error")
	}
	if loop.State() != StateWaitingRetry {
		t.Errorf("expected StateWaitingRetry, got %s", loop.State())
	}
	loop.Stop()
}

func TestSyncNowSchemaIncompatibilityEntersError(t *testing.T) {
	remoteOp := &synclog.Operation{
		TableName:     "todos",
		OpType:        synclog.OpInsert,
		RowPK:         []byte("1"),
		SchemaVersion: 5,
		VectorClock:   map[string]uint64{"remote": 1},
	}
	transport := &fakeTransport{toDeliver: []*synclog.Operation{remoteOp}}
	loop, _, cleanup := newTestLoop(t, transport)
	defer cleanup()

	err := loop.SyncNow(context.Background())
	if err == nil {
		t.Fatal("expected a schema incompatibility error")
	}
	if !syncerrors.IsSchemaError(err) {
		t.Errorf("expected a SchemaError, got %v", err)
	}
	if loop.State() != StateError {
		t.Errorf("expected StateError, got %s", loop.State())
	}
}
