/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncapply

import (
	"context"
	"os"
	"testing"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
)

func newTestApplier(t *testing.T) (*Applier, *synclog.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "syncapply-test-*")
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
	log.EnableSyncForTable("todos")
	return NewApplier(engine, log), log, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func remoteOp(device string, counter uint64, createdAt int64, opType synclog.OpType, pk string, newValues map[string]idcodec.Value) *synclog.Operation {
	var encoded []byte
	if newValues != nil {
		encoded = idcodec.EncodeValues(newValues)
	}
	return &synclog.Operation{
		OpID:        idcodec.NewID(),
		DeviceID:    causality.DeviceID(device),
		VectorClock: map[string]uint64{device: counter},
		TableName:   "todos",
		OpType:      opType,
		RowPK:       []byte(pk),
		NewValues:   encoded,
		CreatedAt:   createdAt,
	}
}

func TestApplyBatchInsertOnAbsentRowSucceeds(t *testing.T) {
	applier, _, cleanup := newTestApplier(t)
	defer cleanup()

	op := remoteOp("A", 1, 100, synclog.OpInsert, "1", map[string]idcodec.Value{"title": idcodec.TextValue("a")})
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{op})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if result.Applied != 1 || len(result.Conflicts) != 0 {
		t.Errorf("expected 1 applied, 0 conflicts, got %+v", result)
	}
}

func TestApplyBatchConcurrentInsertsConflict(t *testing.T) {
	applier, _, cleanup := newTestApplier(t)
	defer cleanup()

	opA := remoteOp("A", 1, 100, synclog.OpInsert, "1", map[string]idcodec.Value{"title": idcodec.TextValue("from-a")})
	opB := remoteOp("B", 1, 200, synclog.OpInsert, "1", map[string]idcodec.Value{"title": idcodec.TextValue("from-b")})

	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{opA, opB})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if result.Applied != 1 || len(result.Conflicts) != 1 {
		t.Errorf("expected 1 applied + 1 conflict, got %+v", result)
	}
	c := result.Conflicts[0]
	if c.TableName != "todos" || string(c.RowPK) != "1" {
		t.Errorf("unexpected conflict scope: %+v", c)
	}
}

func TestApplyBatchStaleUpdateDropped(t *testing.T) {
	applier, _, cleanup := newTestApplier(t)
	defer cleanup()

	insert := remoteOp("A", 1, 100, synclog.OpInsert, "1", map[string]idcodec.Value{"title": idcodec.TextValue("a")})
	update := remoteOp("A", 2, 200, synclog.OpUpdate, "1", map[string]idcodec.Value{"title": idcodec.TextValue("b")})
	stale := remoteOp("A", 1, 50, synclog.OpUpdate, "1", map[string]idcodec.Value{"title": idcodec.TextValue("stale")})
	// stale's vector clock {A:1} is dominated by the row's last writer {A:2}.

	if _, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{insert, update}); err != nil {
		t.Fatalf("ApplyBatch (setup) failed: %v", err)
	}
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{stale})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if result.Dropped != 1 || result.Applied != 0 {
		t.Errorf("expected the stale update to be dropped, got %+v", result)
	}
}

func TestApplyBatchCausalChainAppliesInOrder(t *testing.T) {
	applier, _, cleanup := newTestApplier(t)
	defer cleanup()

	insert := remoteOp("A", 1, 100, synclog.OpInsert, "1", map[string]idcodec.Value{"title": idcodec.TextValue("a")})
	update := &synclog.Operation{
		OpID:        idcodec.NewID(),
		DeviceID:    "B",
		VectorClock: map[string]uint64{"A": 1, "B": 1},
		TableName:   "todos",
		OpType:      synclog.OpUpdate,
		RowPK:       []byte("1"),
		NewValues:   idcodec.EncodeValues(map[string]idcodec.Value{"title": idcodec.TextValue("x")}),
		CreatedAt:   200,
	}

	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{insert, update})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if result.Applied != 2 || len(result.Conflicts) != 0 {
		t.Errorf("expected both ops applied with zero conflicts, got %+v", result)
	}
}
