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
Package syncorder produces the total, deterministic order over any set
of operations that every device must reproduce byte-for-byte: a causal
topological pass (Kahn's algorithm over the vector-clock partial order)
followed by a fixed tie-break comparator within each group of mutually
concurrent operations.
*/
package syncorder

import (
	"sort"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/synclog"
)

// Order returns ops in the canonical total order: causally-earlier
// operations first, with (physical_ts, device_id, op_id) breaking ties
// among operations that are pairwise Concurrent.
func Order(ops []*synclog.Operation) []*synclog.Operation {
	if len(ops) <= 1 {
		return append([]*synclog.Operation(nil), ops...)
	}

	n := len(ops)
	vcs := make([]*causality.VectorClock, n)
	for i, op := range ops {
		vcs[i] = op.VectorClockSnapshot()
	}

	// indegree[i] counts how many other operations causally precede i.
	indegree := make([]int, n)
	precedes := make([][]int, n) // precedes[i] = indices that i causally precedes
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if vcs[i].Compare(vcs[j]) == causality.Less {
				precedes[i] = append(precedes[i], j)
				indegree[j]++
			}
		}
	}

	var out []*synclog.Operation
	remaining := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		remaining[i] = true
	}

	for len(remaining) > 0 {
		// Collect every zero-indegree node still remaining: this is the
		// current "concurrent frontier", broken by the tie-break order.
		var frontier []int
		for i := range remaining {
			if indegree[i] == 0 {
				frontier = append(frontier, i)
			}
		}
		if len(frontier) == 0 {
			// No valid topological step remains (should not happen for
			// well-formed vector clocks); fall back to tie-break over
			// whatever is left so Order always terminates.
			for i := range remaining {
				frontier = append(frontier, i)
			}
		}

		sort.Slice(frontier, func(a, b int) bool {
			return lessOp(ops[frontier[a]], ops[frontier[b]])
		})

		for _, i := range frontier {
			out = append(out, ops[i])
			delete(remaining, i)
			for _, j := range precedes[i] {
				indegree[j]--
			}
		}
	}

	return out
}

// lessOp implements the (physical_ts, device_id, op_id) tie-break.
func lessOp(a, b *synclog.Operation) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	if a.DeviceID != b.DeviceID {
		return a.DeviceID < b.DeviceID
	}
	return idcodec.Compare(a.OpID, b.OpID) < 0
}

// Dedup discards any operation already present in the local log (by
// op_id) or whose device counter is dominated by the local clock's
// knowledge of that device -- i.e. already causally subsumed.
func Dedup(log *synclog.Store, ops []*synclog.Operation) []*synclog.Operation {
	localVC := log.LocalClock()

	out := make([]*synclog.Operation, 0, len(ops))
	for _, op := range ops {
		if _, exists := log.GetOperation(op.OpID); exists {
			continue
		}
		if localVC.Get(op.DeviceID) >= op.DeviceCounter() {
			continue
		}
		out = append(out, op)
	}
	return out
}
