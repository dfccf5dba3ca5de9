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
Package synclog owns the sync engine's operation log: the append-only
record of every captured row mutation, and the capture mechanism -- row
triggers, in spirit -- that feeds it.

The repository pattern here (in-memory cache loaded at startup, mutating
methods persist-then-cache-update under a single mutex) mirrors a
trigger manager's Fire method, but instead of parsing and executing an
action statement through a query executor, Capture appends a native
Operation record directly, which is all a row trigger here ever needs
to do.
*/
package synclog

import (
	"encoding/json"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
)

// OpType enumerates the replication-unit kinds.
type OpType string

const (
	OpInsert          OpType = "INSERT"
	OpUpdate          OpType = "UPDATE"
	OpDelete          OpType = "DELETE"
	OpSchemaMigration OpType = "SCHEMA_MIGRATION"
)

// Operation is the atomic replication unit: a single captured row
// mutation (or schema migration) tagged with enough causal metadata for
// another device to place it correctly relative to everything else it
// has seen.
type Operation struct {
	OpID          idcodec.ID           `json:"op_id"`
	DeviceID      causality.DeviceID   `json:"device_id"`
	ParentOpID    idcodec.ID           `json:"parent_op_id,omitempty"`
	VectorClock   map[string]uint64    `json:"vector_clock"`
	TableName     string               `json:"table_name"`
	OpType        OpType               `json:"op_type"`
	RowPK         []byte               `json:"row_pk"`
	OldValues     []byte               `json:"old_values,omitempty"`
	NewValues     []byte               `json:"new_values,omitempty"`
	SchemaVersion int                  `json:"schema_version"`
	CreatedAt     int64                `json:"created_at"` // microseconds
	IsLocal       bool                 `json:"is_local"`
	AppliedAt     int64                `json:"applied_at,omitempty"`
}

// DeviceCounter returns this operation's position in its originating
// device's per-device counter sequence, used by dedup and ordering.
func (op *Operation) DeviceCounter() uint64 {
	return op.VectorClock[string(op.DeviceID)]
}

// ContentHash returns the SHA-256 hex digest of the operation's JSON
// encoding.
func (op *Operation) ContentHash() string {
	b, _ := json.Marshal(op)
	return idcodec.HashHex(b)
}

// Clone returns a deep-enough copy of op safe for a caller to mutate
// (AppliedAt in particular) without affecting the cached original.
func (op *Operation) Clone() *Operation {
	cp := *op
	cp.VectorClock = make(map[string]uint64, len(op.VectorClock))
	for k, v := range op.VectorClock {
		cp.VectorClock[k] = v
	}
	if op.RowPK != nil {
		cp.RowPK = append([]byte(nil), op.RowPK...)
	}
	if op.OldValues != nil {
		cp.OldValues = append([]byte(nil), op.OldValues...)
	}
	if op.NewValues != nil {
		cp.NewValues = append([]byte(nil), op.NewValues...)
	}
	return &cp
}

// VectorClockSnapshot rebuilds a *causality.VectorClock from the
// operation's stored clock map.
func (op *Operation) VectorClockSnapshot() *causality.VectorClock {
	vc := causality.NewVectorClock()
	for device, counter := range op.VectorClock {
		vc.Clocks[causality.DeviceID(device)] = counter
	}
	return vc
}
