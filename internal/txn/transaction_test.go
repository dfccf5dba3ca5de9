/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package txn

import (
	"errors"
	"os"
	"testing"

	"syncengine/internal/storage"
)

func newTestEngine(t *testing.T) (storage.Engine, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "txn-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 16})
	if err != nil {
		t.Fatalf("failed to create storage engine: %v", err)
	}
	return engine, func() {
		engine.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestRunCommitsOnSuccess(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()

	err := Run(engine, func(tx *Transaction) error {
		return tx.Put("k1", []byte("v1"))
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	v, err := engine.Get("k1")
	if err != nil || string(v) != "v1" {
		t.Errorf("expected committed write to land, got %v, %v", v, err)
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()

	sentinel := errors.New("boom")
	err := Run(engine, func(tx *Transaction) error {
		if err := tx.Put("k2", []byte("v2")); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, err := engine.Get("k2"); err == nil {
		t.Error("expected rolled-back write to not land in the engine")
	}
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()

	err := Run(engine, func(tx *Transaction) error {
		if err := tx.Put("k3", []byte("v3")); err != nil {
			return err
		}
		v, err := tx.Get("k3")
		if err != nil || string(v) != "v3" {
			t.Errorf("expected to read own uncommitted write, got %v, %v", v, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestTransactionPutThenDeleteSameKey(t *testing.T) {
	engine, cleanup := newTestEngine(t)
	defer cleanup()

	err := Run(engine, func(tx *Transaction) error {
		if err := tx.Put("k4", []byte("v4")); err != nil {
			return err
		}
		return tx.Delete("k4")
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := engine.Get("k4"); err == nil {
		t.Error("expected key deleted within the same transaction to stay absent after commit")
	}
}
