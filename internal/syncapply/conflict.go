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
Package syncapply replays ordered, deduped operations against the
user's opted-in tables: one storage-engine transaction per batch
(internal/txn, generalized from internal/sdk.Transaction's client-session
contract), detecting concurrent writes per (table, row_pk) and recording
conflicts instead of silently overwriting.
*/
package syncapply

import (
	"encoding/json"

	"syncengine/internal/idcodec"
)

// ResolutionState tracks a ConflictRecord's lifecycle.
type ResolutionState string

const (
	ResolutionUnresolved ResolutionState = "unresolved"
	ResolutionResolved   ResolutionState = "resolved"
	ResolutionDeferred   ResolutionState = "deferred"
)

// ConflictRecord is the persisted evidence of a detected concurrent
// write pair on the same (table_name, row_pk), per spec.md §3.
type ConflictRecord struct {
	ConflictID      idcodec.ID      `json:"conflict_id"`
	TableName       string          `json:"table_name"`
	RowPK           []byte          `json:"row_pk"`
	LocalOpID       idcodec.ID      `json:"local_op_id"`
	RemoteOpID      idcodec.ID      `json:"remote_op_id"`
	DetectedAt      int64           `json:"detected_at"`
	ResolutionState ResolutionState `json:"resolution_state"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	WinningOpID     idcodec.ID      `json:"winning_op_id,omitempty"`
}

// Key returns the (table_name, row_pk) this conflict is scoped to, used
// to look up "the op that last wrote this row locally" and to group
// conflicts sharing a row.
func (c *ConflictRecord) Key() string {
	return c.TableName + ":" + string(c.RowPK)
}

func marshalConflict(c *ConflictRecord) ([]byte, error) { return json.Marshal(c) }

func unmarshalConflict(b []byte) (*ConflictRecord, error) {
	var c ConflictRecord
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
