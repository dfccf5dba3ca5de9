/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package causality

import "testing"

func TestHLCTickAdvancesOnNewerPhysical(t *testing.T) {
	h := HLC{PhysicalMS: 100, Logical: 5}
	next := h.Tick(200)
	if next.PhysicalMS != 200 || next.Logical != 0 {
		t.Errorf("expected {200 0}, got %+v", next)
	}
}

func TestHLCTickBumpsLogicalWhenPhysicalStalls(t *testing.T) {
	h := HLC{PhysicalMS: 100, Logical: 5}
	next := h.Tick(100)
	if next.PhysicalMS != 100 || next.Logical != 6 {
		t.Errorf("expected {100 6}, got %+v", next)
	}
}

func TestHLCMergeTakesMaxPhysical(t *testing.T) {
	local := HLC{PhysicalMS: 100, Logical: 2}
	remote := HLC{PhysicalMS: 150, Logical: 0}
	merged := local.Merge(remote, 90)
	if merged.PhysicalMS != 150 || merged.Logical != 1 {
		t.Errorf("expected {150 1}, got %+v", merged)
	}
}

func TestHLCMergeTiesBumpLogical(t *testing.T) {
	local := HLC{PhysicalMS: 100, Logical: 3}
	remote := HLC{PhysicalMS: 100, Logical: 7}
	merged := local.Merge(remote, 50)
	if merged.PhysicalMS != 100 || merged.Logical != 8 {
		t.Errorf("expected {100 8}, got %+v", merged)
	}
}

func TestHLCLess(t *testing.T) {
	a := HLC{PhysicalMS: 100, Logical: 1}
	b := HLC{PhysicalMS: 100, Logical: 2}
	c := HLC{PhysicalMS: 101, Logical: 0}

	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if !b.Less(c) {
		t.Error("expected b < c")
	}
	if c.Less(a) {
		t.Error("expected c not < a")
	}
}
