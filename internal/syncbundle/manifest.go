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
Package syncbundle implements the self-contained transport container a
device writes out when it has operations a peer hasn't seen yet, and
reads back in on the receiving side. A bundle is, physically, its own
small embedded-store file built with internal/storage, pointed at a
scratch path instead of the live data directory; Generate writes it
under a temporary name and renames it into place.
*/
package syncbundle

import (
	"syncengine/internal/causality"
	"syncengine/internal/synclog"
)

const FormatVersion = 1

// SchemaSnapshotEntry records a referenced table's schema as of bundle
// creation, so the receiver can reject or defer incompatible operations
// instead of applying them against a schema it doesn't understand yet.
type SchemaSnapshotEntry struct {
	TableName     string   `json:"table_name"`
	SchemaVersion int      `json:"schema_version"`
	Columns       []string `json:"columns"`
}

// Manifest is the bundle's self-describing header.
type Manifest struct {
	BundleID       string            `json:"bundle_id"`
	SourceDeviceID string            `json:"source_device_id"`
	PeerDeviceID   string            `json:"peer_device_id"`
	CreatedAt      int64             `json:"created_at"` // microseconds
	FormatVersion  int               `json:"format_version"`
	OpCount        int               `json:"op_count"`
	CausalSummary  map[string]uint64 `json:"causal_summary"`
	SHA256         string            `json:"sha256"`
}

// Bundle is the full in-memory representation of a transport unit: a
// manifest, the ordered operations it carries, and the schema snapshot
// for every table those operations touch.
type Bundle struct {
	Manifest       Manifest
	Operations     []*synclog.Operation
	SchemaSnapshot []SchemaSnapshotEntry
}

// causalSummaryOf builds the causal_summary manifest field: the
// element-wise maximum device counter observed across ops, which is a
// valid (if partial) vector-clock summary of everything the bundle
// carries -- not a substitute for the source device's full clock, but
// sufficient for a receiver to sanity-check overlap.
func causalSummaryOf(ops []*synclog.Operation) map[string]uint64 {
	vc := causality.NewVectorClock()
	for _, op := range ops {
		vc.Observe(op.DeviceID, op.DeviceCounter())
	}
	out := make(map[string]uint64, len(vc.Clocks))
	for d, c := range vc.Clocks {
		out[string(d)] = c
	}
	return out
}
