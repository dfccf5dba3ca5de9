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

package causality

// HLC is a hybrid logical clock: a physical millisecond timestamp paired
// with a logical counter that breaks ties when multiple events happen
// within the same millisecond, or when the physical clock hasn't
// advanced (or has gone backwards) since the last tick.
//
// HLC is used strictly as the final tie-break among operations the
// vector clock has already determined to be mutually concurrent -- it is
// never used as a substitute for vector-clock causality tracking.
type HLC struct {
	PhysicalMS int64
	Logical    uint32
}

// Tick advances the clock for a locally-originated event observed at
// wall-clock time now (unix milliseconds).
func (h HLC) Tick(now int64) HLC {
	if now > h.PhysicalMS {
		return HLC{PhysicalMS: now, Logical: 0}
	}
	return HLC{PhysicalMS: h.PhysicalMS, Logical: h.Logical + 1}
}

// Merge advances the clock upon receiving a remote HLC, per the standard
// HLC merge rule: the physical component becomes the max of the local
// wall clock and both sides' physical components; the logical component
// resets to zero if the physical component advanced, otherwise increments
// past whichever side's logical component was larger.
func (h HLC) Merge(other HLC, now int64) HLC {
	maxPhysical := now
	if h.PhysicalMS > maxPhysical {
		maxPhysical = h.PhysicalMS
	}
	if other.PhysicalMS > maxPhysical {
		maxPhysical = other.PhysicalMS
	}

	switch {
	case maxPhysical == h.PhysicalMS && maxPhysical == other.PhysicalMS:
		logical := h.Logical
		if other.Logical > logical {
			logical = other.Logical
		}
		return HLC{PhysicalMS: maxPhysical, Logical: logical + 1}
	case maxPhysical == h.PhysicalMS:
		return HLC{PhysicalMS: maxPhysical, Logical: h.Logical + 1}
	case maxPhysical == other.PhysicalMS:
		return HLC{PhysicalMS: maxPhysical, Logical: other.Logical + 1}
	default:
		return HLC{PhysicalMS: maxPhysical, Logical: 0}
	}
}

// Less reports whether h sorts strictly before other.
func (h HLC) Less(other HLC) bool {
	if h.PhysicalMS != other.PhysicalMS {
		return h.PhysicalMS < other.PhysicalMS
	}
	return h.Logical < other.Logical
}
