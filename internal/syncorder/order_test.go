/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncorder

import (
	"os"
	"testing"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

func opWith(t *testing.T, device string, counter uint64, createdAt int64, parentVC map[string]uint64) *synclog.Operation {
	t.Helper()
	vc := map[string]uint64{device: counter}
	for d, c := range parentVC {
		if d != device {
			vc[d] = c
		}
	}
	return &synclog.Operation{
		OpID:        idcodec.NewID(),
		DeviceID:    causality.DeviceID(device),
		VectorClock: vc,
		TableName:   "todos",
		OpType:      synclog.OpInsert,
		RowPK:       []byte("1"),
		CreatedAt:   createdAt,
	}
}

func TestOrderRespectsCausalPrecedence(t *testing.T) {
	a1 := opWith(t, "A", 1, 100, nil)
	a2 := opWith(t, "A", 2, 200, map[string]uint64{"A": 1})

	ordered := Order([]*synclog.Operation{a2, a1})
	if ordered[0].OpID != a1.OpID || ordered[1].OpID != a2.OpID {
		t.Errorf("expected causal order a1, a2; got %v, %v", ordered[0].OpID, ordered[1].OpID)
	}
}

func TestOrderBreaksConcurrentTiesByPhysicalTimestamp(t *testing.T) {
	a := opWith(t, "A", 1, 200, nil)
	b := opWith(t, "B", 1, 100, nil)

	ordered := Order([]*synclog.Operation{a, b})
	if ordered[0].OpID != b.OpID {
		t.Errorf("expected the earlier-timestamped concurrent op first, got %s", ordered[0].OpID)
	}
}

func TestOrderIsDeterministicAcrossDeliveryOrder(t *testing.T) {
	a1 := opWith(t, "A", 1, 100, nil)
	b1 := opWith(t, "B", 1, 150, nil)
	a2 := opWith(t, "A", 2, 300, map[string]uint64{"A": 1})

	first := Order([]*synclog.Operation{a2, a1, b1})
	second := Order([]*synclog.Operation{b1, a1, a2})

	if len(first) != len(second) {
		t.Fatalf("order length mismatch")
	}
	for i := range first {
		if first[i].OpID != second[i].OpID {
			t.Errorf("order diverged at index %d: %s != %s", i, first[i].OpID, second[i].OpID)
		}
	}
}

func TestDedupFiltersKnownAndDominatedOps(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "syncorder-dedup-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: tmpDir, BufferPoolSize: 16})
	if err != nil {
		t.Fatalf("failed to create storage engine: %v", err)
	}
	defer engine.Close()

	store, err := synclog.Open(engine)
	if err != nil {
		t.Fatalf("failed to open synclog store: %v", err)
	}
	store.EnableSyncForTable("todos")
	var local *synclog.Operation
	err = txn.Run(engine, func(tx *txn.Transaction) error {
		var captureErr error
		local, captureErr = store.Capture(tx, "todos", synclog.OpInsert, []byte("1"), nil, map[string]idcodec.Value{"title": idcodec.TextValue("a")}, 1)
		return captureErr
	})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	remoteNew := opWith(t, "remote-device", 1, 500, nil)
	remoteDominated := opWith(t, string(local.DeviceID), 1, 500, nil) // already captured locally at counter 1

	candidates := []*synclog.Operation{local, remoteNew, remoteDominated}
	filtered := Dedup(store, candidates)

	if len(filtered) != 1 || filtered[0].OpID != remoteNew.OpID {
		t.Errorf("expected only remoteNew to survive dedup, got %d results", len(filtered))
	}
}
