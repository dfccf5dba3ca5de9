/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncexec

import (
	"context"
	"os"
	"testing"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/syncapply"
	"syncengine/internal/synclog"
)

func newTestExecutor(t *testing.T) (*Executor, storage.Engine, *synclog.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "syncexec-test-*")
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
	applier := syncapply.NewApplier(engine, log)
	return NewExecutor(engine, log, applier), engine, log, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func insertOp(device string, counter uint64, createdAt int64, pk string) *synclog.Operation {
	return &synclog.Operation{
		OpID:        idcodec.NewID(),
		DeviceID:    causality.DeviceID(device),
		VectorClock: map[string]uint64{device: counter},
		TableName:   "todos",
		OpType:      synclog.OpInsert,
		RowPK:       []byte(pk),
		NewValues:   idcodec.EncodeValues(map[string]idcodec.Value{"title": idcodec.TextValue("x")}),
		CreatedAt:   createdAt,
	}
}

func TestApplyBundleCommitsCheckpoint(t *testing.T) {
	executor, engine, _, cleanup := newTestExecutor(t)
	defer cleanup()

	ops := []*synclog.Operation{insertOp("A", 1, 100, "1")}
	result, err := executor.ApplyBundle(context.Background(), ops)
	if err != nil {
		t.Fatalf("ApplyBundle failed: %v", err)
	}
	if result.Applied != 1 {
		t.Errorf("expected 1 applied op, got %+v", result)
	}

	pending, err := inProgressCheckpoints(engine)
	if err != nil {
		t.Fatalf("inProgressCheckpoints failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no in_progress checkpoints after a successful apply, got %d", len(pending))
	}
}

func TestApplyBundleEmptyBatchIsNoop(t *testing.T) {
	executor, engine, _, cleanup := newTestExecutor(t)
	defer cleanup()

	if _, err := executor.ApplyBundle(context.Background(), nil); err != nil {
		t.Fatalf("ApplyBundle with no ops should be a no-op, got: %v", err)
	}
	pending, err := inProgressCheckpoints(engine)
	if err != nil {
		t.Fatalf("inProgressCheckpoints failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no checkpoints for an empty batch, got %d", len(pending))
	}
}

func TestRecoverCheckpointsReplaysInProgressBatch(t *testing.T) {
	executor, engine, log, cleanup := newTestExecutor(t)
	defer cleanup()

	op := insertOp("A", 1, 100, "1")
	if err := log.ApplyOperation(op); err != nil {
		t.Fatalf("failed to register op: %v", err)
	}

	// Simulate a crash after beginCheckpoint but before ApplyBundle's
	// own commit: persist an in_progress checkpoint directly, bypassing
	// the normal ApplyBundle path.
	if _, err := beginCheckpoint(engine, log, []*synclog.Operation{op}); err != nil {
		t.Fatalf("beginCheckpoint failed: %v", err)
	}

	pendingBefore, err := inProgressCheckpoints(engine)
	if err != nil || len(pendingBefore) != 1 {
		t.Fatalf("expected exactly one in_progress checkpoint, got %d (err=%v)", len(pendingBefore), err)
	}

	results, err := executor.RecoverCheckpoints(context.Background())
	if err != nil {
		t.Fatalf("RecoverCheckpoints failed: %v", err)
	}
	if len(results) != 1 || results[0].Applied != 1 {
		t.Fatalf("expected the recovered batch to apply its one op, got %+v", results)
	}

	pendingAfter, err := inProgressCheckpoints(engine)
	if err != nil {
		t.Fatalf("inProgressCheckpoints failed: %v", err)
	}
	if len(pendingAfter) != 0 {
		t.Errorf("expected the recovered checkpoint to be committed, got %d still in_progress", len(pendingAfter))
	}
}
