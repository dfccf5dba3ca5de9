/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package causality implements the vector clock and hybrid logical clock
the sync engine uses to order operations across devices without relying
on synchronized wall clocks.

VectorClock is modeled directly on the streaming replicator's own clock
type: a per-device counter map behind a read-write mutex, with Increment,
Get, Merge (element-wise max), and Copy. It gains a Compare method here
because the sync engine, unlike a leader-driven replicator, has to
classify two clocks as equal, strictly ordered, or concurrent rather than
just merge them.
*/
package causality

import (
	"sort"
	"sync"

	"syncengine/internal/idcodec"
)

// DeviceID identifies a device participating in sync.
type DeviceID string

// CompareResult classifies the causal relationship between two clocks.
type CompareResult int

const (
	Equal CompareResult = iota
	Less
	Greater
	Concurrent
)

func (c CompareResult) String() string {
	switch c {
	case Equal:
		return "EQUAL"
	case Less:
		return "LESS"
	case Greater:
		return "GREATER"
	case Concurrent:
		return "CONCURRENT"
	default:
		return "UNKNOWN"
	}
}

// VectorClock tracks, per device, the highest operation counter this
// device has observed originating from that device.
type VectorClock struct {
	mu     sync.RWMutex
	Clocks map[DeviceID]uint64
}

// NewVectorClock returns an empty clock.
func NewVectorClock() *VectorClock {
	return &VectorClock{Clocks: make(map[DeviceID]uint64)}
}

// Increment bumps the counter for device and returns the new value. Used
// when this device allocates a new local operation.
func (vc *VectorClock) Increment(device DeviceID) uint64 {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.Clocks[device]++
	return vc.Clocks[device]
}

// Get returns the current counter for device.
func (vc *VectorClock) Get(device DeviceID) uint64 {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.Clocks[device]
}

// Observe records that a counter of at least value has been seen for
// device, advancing the clock if value is higher than what's recorded.
func (vc *VectorClock) Observe(device DeviceID, value uint64) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if value > vc.Clocks[device] {
		vc.Clocks[device] = value
	}
}

// Merge takes the element-wise maximum of vc and other, in place.
func (vc *VectorClock) Merge(other *VectorClock) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	vc.mu.Lock()
	defer vc.mu.Unlock()
	for device, counter := range other.Clocks {
		if counter > vc.Clocks[device] {
			vc.Clocks[device] = counter
		}
	}
}

// Copy returns a deep copy of vc.
func (vc *VectorClock) Copy() *VectorClock {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	cp := NewVectorClock()
	for device, counter := range vc.Clocks {
		cp.Clocks[device] = counter
	}
	return cp
}

// Compare classifies the causal relationship of vc to other: Equal when
// every counter matches, Less when vc is dominated by other, Greater
// when vc dominates other, and Concurrent when neither dominates.
func (vc *VectorClock) Compare(other *VectorClock) CompareResult {
	vc.mu.RLock()
	other.mu.RLock()
	defer vc.mu.RUnlock()
	defer other.mu.RUnlock()

	vcLess, vcGreater := false, false
	devices := make(map[DeviceID]struct{})
	for d := range vc.Clocks {
		devices[d] = struct{}{}
	}
	for d := range other.Clocks {
		devices[d] = struct{}{}
	}

	for d := range devices {
		a, b := vc.Clocks[d], other.Clocks[d]
		if a < b {
			vcLess = true
		} else if a > b {
			vcGreater = true
		}
	}

	switch {
	case !vcLess && !vcGreater:
		return Equal
	case vcLess && !vcGreater:
		return Less
	case vcGreater && !vcLess:
		return Greater
	default:
		return Concurrent
	}
}

// Encode serializes the clock deterministically for persistence and wire
// transfer, reusing idcodec's sorted-key value codec.
func (vc *VectorClock) Encode() []byte {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	values := make(map[string]idcodec.Value, len(vc.Clocks))
	for device, counter := range vc.Clocks {
		values[string(device)] = idcodec.IntValue(int64(counter))
	}
	return idcodec.EncodeValues(values)
}

// Decode is the inverse of Encode.
func Decode(b []byte) (*VectorClock, error) {
	values, err := idcodec.DecodeValues(b)
	if err != nil {
		return nil, err
	}
	vc := NewVectorClock()
	for device, v := range values {
		vc.Clocks[DeviceID(device)] = uint64(v.Int)
	}
	return vc, nil
}

// Devices returns every device present in the clock, sorted for
// deterministic iteration.
func (vc *VectorClock) Devices() []DeviceID {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	out := make([]DeviceID, 0, len(vc.Clocks))
	for d := range vc.Clocks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
