/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package causality

import "testing"

func TestVectorClockIncrement(t *testing.T) {
	vc := NewVectorClock()
	if v := vc.Increment("device-a"); v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	if v := vc.Increment("device-a"); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
	if v := vc.Get("device-b"); v != 0 {
		t.Errorf("expected 0 for unseen device, got %d", v)
	}
}

func TestVectorClockMerge(t *testing.T) {
	a := NewVectorClock()
	a.Increment("device-a")
	a.Increment("device-a")

	b := NewVectorClock()
	b.Increment("device-b")
	b.Increment("device-a")
	b.Increment("device-a")
	b.Increment("device-a")

	a.Merge(b)

	if got := a.Get("device-a"); got != 3 {
		t.Errorf("expected merged device-a=3, got %d", got)
	}
	if got := a.Get("device-b"); got != 1 {
		t.Errorf("expected merged device-b=1, got %d", got)
	}
}

func TestVectorClockCompare(t *testing.T) {
	a := NewVectorClock()
	a.Increment("device-a")

	b := a.Copy()

	if got := a.Compare(b); got != Equal {
		t.Errorf("expected Equal, got %s", got)
	}

	b.Increment("device-a")
	if got := a.Compare(b); got != Less {
		t.Errorf("expected Less, got %s", got)
	}
	if got := b.Compare(a); got != Greater {
		t.Errorf("expected Greater, got %s", got)
	}

	c := a.Copy()
	c.Increment("device-c")
	if got := b.Compare(c); got != Concurrent {
		t.Errorf("expected Concurrent, got %s", got)
	}
}

func TestVectorClockEncodeDecode(t *testing.T) {
	vc := NewVectorClock()
	vc.Increment("device-a")
	vc.Increment("device-b")
	vc.Increment("device-b")

	encoded := vc.Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Compare(vc) != Equal {
		t.Error("decoded clock should compare Equal to original")
	}
}

func TestVectorClockCopyIsIndependent(t *testing.T) {
	a := NewVectorClock()
	a.Increment("device-a")
	b := a.Copy()
	b.Increment("device-a")

	if a.Get("device-a") == b.Get("device-a") {
		t.Error("Copy should be independent of the original")
	}
}
