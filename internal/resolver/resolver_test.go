/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package resolver

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

func newTestRegistry(t *testing.T) (*Registry, *syncapply.Applier, storage.Engine, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "resolver-test-*")
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
	return NewRegistry(engine, log), applier, engine, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func conflictOp(device string, counter uint64, createdAt int64, title string) *synclog.Operation {
	return &synclog.Operation{
		OpID:        idcodec.NewID(),
		DeviceID:    causality.DeviceID(device),
		VectorClock: map[string]uint64{device: counter},
		TableName:   "todos",
		OpType:      synclog.OpInsert,
		RowPK:       []byte("1"),
		NewValues:   idcodec.EncodeValues(map[string]idcodec.Value{"title": idcodec.TextValue(title)}),
		CreatedAt:   createdAt,
	}
}

func TestLastWriteWinsPicksLaterCreatedAt(t *testing.T) {
	registry, applier, engine, cleanup := newTestRegistry(t)
	defer cleanup()

	opA := conflictOp("A", 1, 100, "from-a")
	opB := conflictOp("B", 1, 200, "from-b")
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{opA, opB})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d", len(result.Conflicts))
	}
	conflictID := result.Conflicts[0].ConflictID

	op, err := registry.Apply(conflictID, "last_write_wins")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if op == nil {
		t.Fatal("expected a synthesized resolution operation")
	}

	resolved, ok, err := syncapply.LoadConflict(engine, conflictID)
	if err != nil || !ok {
		t.Fatalf("failed to reload conflict: ok=%v err=%v", ok, err)
	}
	if resolved.ResolutionState != syncapply.ResolutionResolved {
		t.Errorf("expected resolved, got %s", resolved.ResolutionState)
	}
	if resolved.WinningOpID != op.OpID {
		t.Errorf("expected winning_op_id to be the synthesized op")
	}
}

func TestManualDefersConflict(t *testing.T) {
	registry, applier, engine, cleanup := newTestRegistry(t)
	defer cleanup()

	opA := conflictOp("A", 1, 100, "from-a")
	opB := conflictOp("B", 1, 200, "from-b")
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{opA, opB})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	conflictID := result.Conflicts[0].ConflictID

	op, err := registry.Apply(conflictID, "manual")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if op != nil {
		t.Fatal("expected manual resolver to defer, not synthesize an operation")
	}

	deferred, ok, err := syncapply.LoadConflict(engine, conflictID)
	if err != nil || !ok {
		t.Fatalf("failed to reload conflict: ok=%v err=%v", ok, err)
	}
	if deferred.ResolutionState != syncapply.ResolutionDeferred {
		t.Errorf("expected deferred, got %s", deferred.ResolutionState)
	}
}

func TestApplyUnknownResolverFails(t *testing.T) {
	registry, applier, _, cleanup := newTestRegistry(t)
	defer cleanup()

	opA := conflictOp("A", 1, 100, "from-a")
	opB := conflictOp("B", 1, 200, "from-b")
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{opA, opB})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	conflictID := result.Conflicts[0].ConflictID

	if _, err := registry.Apply(conflictID, "does_not_exist"); err == nil {
		t.Fatal("expected an error for an unknown resolver name")
	}
}

func TestCustomResolverDelegatesToFn(t *testing.T) {
	registry, applier, _, cleanup := newTestRegistry(t)
	defer cleanup()

	opA := conflictOp("A", 1, 100, "from-a")
	opB := conflictOp("B", 1, 200, "from-b")
	result, err := applier.ApplyBatch(context.Background(), []*synclog.Operation{opA, opB})
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	conflictID := result.Conflicts[0].ConflictID

	called := false
	registry.Register("always_remote", Custom(func(ctx *syncapply.ConflictContext) (Result, error) {
		called = true
		return Result{Resolved: true, Values: ctx.RemoteValues}, nil
	}))

	if _, err := registry.Apply(conflictID, "always_remote"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !called {
		t.Error("expected the custom function to run")
	}
}
