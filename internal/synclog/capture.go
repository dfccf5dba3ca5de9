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

package synclog

import (
	"encoding/json"
	"time"

	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/txn"
)

// Capture builds an Operation for a row mutation observed on an opted-in
// table and stages it into tx -- the same transaction the caller is
// using for the row mutation itself, the way an AFTER INSERT/UPDATE/
// DELETE trigger fires inside the user's statement. Neither the
// operation record nor the local vector clock advance is visible to the
// engine until tx.Commit(); if the caller rolls tx back instead, the
// local bookkeeping this call staged (the in-memory index entry, the
// per-device counter, the parent-op chain) unwinds with it via a
// registered rollback hook, so a rolled-back statement leaves no trace
// of the operation it would have produced.
func (s *Store) Capture(tx *txn.Transaction, tableName string, opType OpType, pk []byte, old, new map[string]idcodec.Value, schemaVersion int) (*Operation, error) {
	if !s.IsTableEnabled(tableName) {
		return nil, errors.UnknownTable(tableName)
	}
	if len(pk) == 0 {
		return nil, errors.InvalidPrimaryKey("row_pk must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	device := s.deviceID
	parentOpID := s.lastOpID[device]
	counter := s.localClock.Increment(device)

	clockSnapshot := make(map[string]uint64, len(s.localClock.Clocks))
	for d, count := range s.localClock.Clocks {
		clockSnapshot[string(d)] = count
	}
	// The per-device counter just incremented is what GetNewOperations and
	// dedup filter against; make sure it is reflected verbatim.
	clockSnapshot[string(device)] = counter

	op := &Operation{
		OpID:          idcodec.NewID(),
		DeviceID:      device,
		ParentOpID:    parentOpID,
		VectorClock:   clockSnapshot,
		TableName:     tableName,
		OpType:        opType,
		RowPK:         pk,
		SchemaVersion: schemaVersion,
		CreatedAt:     time.Now().UnixMicro(),
		IsLocal:       true,
	}
	if old != nil {
		op.OldValues = idcodec.EncodeValues(old)
	}
	if new != nil {
		op.NewValues = idcodec.EncodeValues(new)
	}

	data, err := json.Marshal(op)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to serialize operation").WithCause(err)
	}
	if err := tx.Put(opKeyPrefix+string(op.OpID), data); err != nil {
		return nil, err
	}
	if err := tx.Put(vectorClockKey, s.localClock.Encode()); err != nil {
		return nil, err
	}

	s.ops[op.OpID] = op
	s.lastOpID[device] = op.OpID

	tx.OnRollback(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.ops, op.OpID)
		if s.lastOpID[device] == op.OpID {
			s.lastOpID[device] = parentOpID
		}
		if s.localClock.Clocks[device] == counter {
			s.localClock.Clocks[device] = counter - 1
		}
	})

	return op, nil
}

// ApplyOperation records a remote (or replayed local) operation into the
// log as-is, without re-deriving causal metadata. It is used by the
// apply pipeline once an operation has already been ordered, deduped,
// and (if needed) conflict-checked; this only persists it and advances
// the local clock's knowledge of the originating device.
func (s *Store) ApplyOperation(op *Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ops[op.OpID]; exists {
		return nil // idempotent
	}
	if err := s.putOperation(op); err != nil {
		return err
	}
	s.localClock.Observe(op.DeviceID, op.DeviceCounter())
	if op.IsLocal {
		if existing, ok := s.lastOpID[op.DeviceID]; !ok || idcodec.Compare(op.OpID, existing) > 0 {
			s.lastOpID[op.DeviceID] = op.OpID
		}
	}
	return s.persistVectorClock()
}

// MarkApplied stamps an operation's applied_at timestamp after the apply
// pipeline has successfully replayed it against user-table state.
func (s *Store) MarkApplied(id idcodec.ID, appliedAtMicros int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return errors.NewDatabaseError("cannot mark unknown operation applied").WithDetail(string(id))
	}
	op.AppliedAt = appliedAtMicros
	return s.putOperation(op)
}
