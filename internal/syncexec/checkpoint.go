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
Package syncexec brackets an apply batch with a persisted checkpoint so
a crash mid-batch leaves behind evidence of exactly what was in flight,
per §4.7: create_checkpoint before applying, mark committed on success,
and on restart, any checkpoint still in_progress is replayed through
ApplyBatch, which is idempotent per op.
*/
package syncexec

import (
	"encoding/json"

	"syncengine/internal/idcodec"
)

// Status is a Checkpoint's lifecycle state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCommitted  Status = "committed"
	StatusAborted    Status = "aborted"
)

// Checkpoint brackets one atomic apply batch. OpIDs is not part of the
// spec's (checkpoint_id, started_at, last_applied_op_id,
// vector_clock_at_start, status) tuple, but recovery needs the full
// batch to re-invoke apply with, not just its first and last members,
// so it is carried alongside.
type Checkpoint struct {
	CheckpointID       idcodec.ID        `json:"checkpoint_id"`
	StartedAt          int64             `json:"started_at"`
	LastAppliedOpID    idcodec.ID        `json:"last_applied_op_id,omitempty"`
	VectorClockAtStart map[string]uint64 `json:"vector_clock_at_start"`
	Status             Status            `json:"status"`
	OpIDs              []idcodec.ID      `json:"op_ids"`
}

func marshalCheckpoint(c *Checkpoint) ([]byte, error) { return json.Marshal(c) }

func unmarshalCheckpoint(b []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
