/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package storage

import (
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	engine, cleanup := setupTestEngine(t)
	defer cleanup()

	if err := engine.Put("peers:device-1", []byte("hello")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	val, err := engine.Get("peers:device-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "hello" {
		t.Errorf("expected 'hello', got %q", val)
	}

	if err := engine.Delete("peers:device-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := engine.Get("peers:device-1"); err == nil {
		t.Error("expected error reading a deleted key")
	}
}

func TestScanPrefix(t *testing.T) {
	engine, cleanup := setupTestEngine(t)
	defer cleanup()

	engine.Put("oplog:0001", []byte("a"))
	engine.Put("oplog:0002", []byte("b"))
	engine.Put("peers:device-1", []byte("c"))

	results, err := engine.Scan("oplog:")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestWALReplay(t *testing.T) {
	engine, path, cleanup := setupTestEngineWithPath(t)
	defer cleanup()

	engine.Put("oplog:0001", []byte("durable"))
	engine.Put("oplog:0002", []byte("value"))
	engine.Delete("oplog:0001")

	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewStorageEngine(StorageConfig{DataDir: path, BufferPoolSize: 256})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get("oplog:0001"); err == nil {
		t.Error("expected tombstoned key to stay deleted after replay")
	}
	val, err := reopened.Get("oplog:0002")
	if err != nil {
		t.Fatalf("expected surviving key after replay: %v", err)
	}
	if string(val) != "value" {
		t.Errorf("expected 'value', got %q", val)
	}
}

func TestEncryptedEngineRoundTrip(t *testing.T) {
	engine, cleanup := setupTestEngineWithEncryption(t, "correct horse battery staple")
	defer cleanup()

	if !engine.IsEncrypted() {
		t.Error("expected IsEncrypted to be true")
	}

	if err := engine.Put("schema:users:version", []byte("3")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	val, err := engine.Get("schema:users:version")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "3" {
		t.Errorf("expected '3', got %q", val)
	}
}

func TestEngineStats(t *testing.T) {
	engine, cleanup := setupTestEngine(t)
	defer cleanup()

	engine.Put("a", []byte("1"))
	engine.Put("b", []byte("2"))

	stats := engine.Stats()
	if stats.KeyCount != 2 {
		t.Errorf("expected KeyCount 2, got %d", stats.KeyCount)
	}
	if stats.EngineType != EngineTypeDisk {
		t.Errorf("expected engine type disk, got %s", stats.EngineType)
	}
}
