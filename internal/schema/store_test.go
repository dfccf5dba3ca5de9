/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package schema

import (
	"os"
	"testing"

	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

func newTestStore(t *testing.T) (*Store, *synclog.Store, storage.Engine, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "schema-test-*")
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
	s, err := Open(engine, log)
	if err != nil {
		t.Fatalf("failed to open schema store: %v", err)
	}
	return s, log, engine, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

// addColumn runs s.AddColumn inside its own committed transaction, for
// tests that don't care about rollback behavior.
func addColumn(t *testing.T, s *Store, engine storage.Engine, table, column string, colType idcodec.ValueType, defaultValue idcodec.Value) (*Migration, error) {
	t.Helper()
	var m *Migration
	err := txn.Run(engine, func(tx *txn.Transaction) error {
		var addErr error
		m, addErr = s.AddColumn(tx, table, column, colType, defaultValue)
		return addErr
	})
	return m, err
}

func TestAddColumnBumpsVersionAndEmitsOp(t *testing.T) {
	s, log, engine, cleanup := newTestStore(t)
	defer cleanup()

	if s.Version("todos") != 0 {
		t.Fatalf("expected a fresh table to start at version 0, got %d", s.Version("todos"))
	}

	m, err := addColumn(t, s, engine, "todos", "priority", idcodec.TypeInt, idcodec.IntValue(0))
	if err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if m.FromVersion != 0 || m.ToVersion != 1 {
		t.Errorf("expected version 0->1, got %d->%d", m.FromVersion, m.ToVersion)
	}
	if s.Version("todos") != 1 {
		t.Errorf("expected table version 1, got %d", s.Version("todos"))
	}

	ops := log.AllOperations()
	if len(ops) != 1 || ops[0].OpType != synclog.OpSchemaMigration {
		t.Fatalf("expected exactly one SCHEMA_MIGRATION op, got %+v", ops)
	}
	if ops[0].SchemaVersion != 1 {
		t.Errorf("expected op's schema_version 1, got %d", ops[0].SchemaVersion)
	}
}

func TestAddColumnRejectsUnknownTable(t *testing.T) {
	s, _, engine, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := addColumn(t, s, engine, "ghosts", "col", idcodec.TypeText, idcodec.TextValue("")); err == nil {
		t.Fatal("expected an error for a table never opted into sync")
	}
}

func TestCheckCompatibility(t *testing.T) {
	s, _, engine, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := addColumn(t, s, engine, "todos", "priority", idcodec.TypeInt, idcodec.IntValue(0)); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	if !s.CheckCompatibility("todos", 0) {
		t.Error("expected a remote behind local to be compatible")
	}
	if !s.CheckCompatibility("todos", 1) {
		t.Error("expected a remote at the same version to be compatible")
	}
	if s.CheckCompatibility("todos", 2) {
		t.Error("expected a remote ahead of local to be incompatible")
	}
}

func TestApplyRemoteMigrationAdvancesVersionIdempotently(t *testing.T) {
	s, _, _, cleanup := newTestStore(t)
	defer cleanup()

	op := &synclog.Operation{
		OpType:        synclog.OpSchemaMigration,
		TableName:     "todos",
		SchemaVersion: 1,
	}
	if err := s.ApplyRemoteMigration(op); err != nil {
		t.Fatalf("ApplyRemoteMigration failed: %v", err)
	}
	if s.Version("todos") != 1 {
		t.Errorf("expected version 1, got %d", s.Version("todos"))
	}
	if err := s.ApplyRemoteMigration(op); err != nil {
		t.Fatalf("replaying the same migration should be a no-op, got: %v", err)
	}
	if s.Version("todos") != 1 {
		t.Errorf("expected version to stay 1 after replay, got %d", s.Version("todos"))
	}
}
