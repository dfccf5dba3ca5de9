/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package synclog

import (
	"os"
	"testing"

	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/txn"
)

func newTestStore(t *testing.T) (*Store, storage.Engine, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "synclog-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 64})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage engine: %v", err)
	}
	store, err := Open(engine)
	if err != nil {
		engine.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open synclog store: %v", err)
	}
	return store, engine, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

// capture runs store.Capture inside its own committed transaction, for
// tests that don't care about rollback behavior.
func capture(t *testing.T, store *Store, engine storage.Engine, tableName string, opType OpType, pk []byte, old, new map[string]idcodec.Value, schemaVersion int) (*Operation, error) {
	t.Helper()
	var op *Operation
	err := txn.Run(engine, func(tx *txn.Transaction) error {
		var captureErr error
		op, captureErr = store.Capture(tx, tableName, opType, pk, old, new, schemaVersion)
		return captureErr
	})
	return op, err
}

func TestEnableSyncForTableIdempotent(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	if err := store.EnableSyncForTable("todos"); err != nil {
		t.Fatalf("EnableSyncForTable failed: %v", err)
	}
	if err := store.EnableSyncForTable("todos"); err != nil {
		t.Fatalf("second EnableSyncForTable call should be a no-op, got: %v", err)
	}
	if !store.IsTableEnabled("todos") {
		t.Error("expected todos to be enabled")
	}
}

func TestCaptureRejectsUnknownTable(t *testing.T) {
	store, engine, cleanup := newTestStore(t)
	defer cleanup()

	_, err := capture(t, store, engine, "widgets", OpInsert, []byte("1"), nil, map[string]idcodec.Value{"id": idcodec.IntValue(1)}, 1)
	if err == nil {
		t.Fatal("expected error capturing on a table that was never enabled")
	}
}

func TestCaptureAssignsParentChain(t *testing.T) {
	store, engine, cleanup := newTestStore(t)
	defer cleanup()
	store.EnableSyncForTable("todos")

	op1, err := capture(t, store, engine, "todos", OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("a")}, 1)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !op1.ParentOpID.Empty() {
		t.Errorf("expected first op to have an empty parent, got %s", op1.ParentOpID)
	}

	op2, err := capture(t, store, engine, "todos", OpUpdate, []byte("1"), map[string]idcodec.Value{"title": idcodec.TextValue("a")}, map[string]idcodec.Value{"title": idcodec.TextValue("b")}, 1)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if op2.ParentOpID != op1.OpID {
		t.Errorf("expected op2.ParentOpID == op1.OpID, got %s != %s", op2.ParentOpID, op1.OpID)
	}
	if op2.DeviceCounter() != 2 {
		t.Errorf("expected device counter 2, got %d", op2.DeviceCounter())
	}
}

func TestApplyOperationIsIdempotent(t *testing.T) {
	store, engine, cleanup := newTestStore(t)
	defer cleanup()
	store.EnableSyncForTable("todos")

	op, err := capture(t, store, engine, "todos", OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("a")}, 1)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	remote := op.Clone()
	remote.IsLocal = false

	if err := store.ApplyOperation(remote); err != nil {
		t.Fatalf("ApplyOperation failed: %v", err)
	}
	if err := store.ApplyOperation(remote); err != nil {
		t.Fatalf("second ApplyOperation call should be a no-op, got: %v", err)
	}
}

func TestGetNewOperationsFiltersBySinceVC(t *testing.T) {
	store, engine, cleanup := newTestStore(t)
	defer cleanup()
	store.EnableSyncForTable("todos")

	capture(t, store, engine, "todos", OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("a")}, 1)
	capture(t, store, engine, "todos", OpInsert, []byte("2"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("b")}, 1)

	empty := store.LocalClock()
	for d := range empty.Clocks {
		delete(empty.Clocks, d)
	}
	allOps := store.GetNewOperations(empty)
	if len(allOps) != 2 {
		t.Errorf("expected 2 new operations against an empty clock, got %d", len(allOps))
	}

	current := store.LocalClock()
	none := store.GetNewOperations(current)
	if len(none) != 0 {
		t.Errorf("expected 0 new operations against the current clock, got %d", len(none))
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "synclog-reopen-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 64})
	if err != nil {
		t.Fatalf("failed to create storage engine: %v", err)
	}
	store, err := Open(engine)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.EnableSyncForTable("todos")
	op, err := capture(t, store, engine, "todos", OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("a")}, 1)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	deviceID := store.DeviceID()
	engine.Close()

	engine2, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 64})
	if err != nil {
		t.Fatalf("failed to reopen storage engine: %v", err)
	}
	defer engine2.Close()
	store2, err := Open(engine2)
	if err != nil {
		t.Fatalf("Open (reopen) failed: %v", err)
	}

	if store2.DeviceID() != deviceID {
		t.Errorf("expected device identity to survive reopen, got %s != %s", store2.DeviceID(), deviceID)
	}
	if !store2.IsTableEnabled("todos") {
		t.Error("expected enabled tables to survive reopen")
	}
	if _, ok := store2.GetOperation(op.OpID); !ok {
		t.Error("expected captured operation to survive reopen")
	}
}
