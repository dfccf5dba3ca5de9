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

package syncapply

import (
	"context"
	"time"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

// BatchResult summarizes the outcome of one ApplyBatch call.
type BatchResult struct {
	Applied      int
	Dropped      int // stale: vc < current row's last writer
	Conflicts    []*ConflictRecord
	SchemaBlocks int // always zero: ApplyBatch does not defer ops on schema_version
}

// Applier replays ordered operations against rowState, the stand-in for
// the user's opted-in tables, opening one internal/txn.Transaction per
// batch so the batch either lands in full or not at all.
type Applier struct {
	engine storage.Engine
	log    *synclog.Store
}

func NewApplier(engine storage.Engine, log *synclog.Store) *Applier {
	return &Applier{engine: engine, log: log}
}

// ApplyBatch applies ops, already ordered and deduped by the caller, in
// a single transaction. Per §4.5: INSERT/UPDATE/DELETE causality rules
// against the row's last writer and conflict recording on concurrency.
// ApplyBatch does not compare a data op's schema_version with the
// table's local schema version, so it never blocks a data op that
// arrives ahead of its SCHEMA_MIGRATION.
func (a *Applier) ApplyBatch(ctx context.Context, ops []*synclog.Operation) (BatchResult, error) {
	var result BatchResult

	// The log is the source of truth and records every op whether or
	// not it ends up mutating user state, so registration happens
	// outside (and independent of) the row-state transaction below.
	for _, op := range ops {
		if err := a.log.ApplyOperation(op); err != nil {
			return BatchResult{}, err
		}
	}

	mutated := make(map[idcodec.ID]bool, len(ops))
	err := txn.Run(a.engine, func(tx *txn.Transaction) error {
		for _, op := range ops {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if op.OpType == synclog.OpSchemaMigration {
				// Schema migrations themselves always apply; the
				// schema package is responsible for rejecting
				// incompatible bundles before they ever reach here.
				result.Applied++
				mutated[op.OpID] = true
				continue
			}

			outcome, conflict, err := a.applyOne(tx, op)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeApplied:
				result.Applied++
				mutated[op.OpID] = true
			case outcomeDropped:
				result.Dropped++
			case outcomeConflict:
				result.Conflicts = append(result.Conflicts, conflict)
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	now := time.Now().UnixMicro()
	for _, op := range ops {
		if !mutated[op.OpID] {
			continue
		}
		if err := a.log.MarkApplied(op.OpID, now); err != nil {
			return result, err
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeApplied outcome = iota
	outcomeDropped
	outcomeConflict
)

func (a *Applier) applyOne(tx *txn.Transaction, op *synclog.Operation) (outcome, *ConflictRecord, error) {
	rs, existed, err := loadRowState(tx, op.TableName, op.RowPK)
	if err != nil {
		return outcomeDropped, nil, err
	}
	opVC := op.VectorClockSnapshot()

	switch op.OpType {
	case synclog.OpInsert:
		if existed && rs.Present {
			return a.recordConflict(tx, op, rs)
		}
		return a.commitRow(tx, op, opVC, true)

	case synclog.OpUpdate, synclog.OpDelete:
		if !existed {
			// Nothing locally to compare against: treat as a fresh
			// write, matching INSERT's absent-row path.
			return a.commitRow(tx, op, opVC, op.OpType == synclog.OpUpdate)
		}
		rowVC := rs.vectorClock()
		switch rowVC.Compare(opVC) {
		case causality.Less, causality.Equal:
			// op causally supersedes (or ties, idempotent replay).
			if rs.OpenConflictID != "" {
				if err := a.resolveConflict(tx, rs.OpenConflictID, op.OpID); err != nil {
					return outcomeDropped, nil, err
				}
			}
			return a.commitRow(tx, op, opVC, op.OpType == synclog.OpUpdate)
		case causality.Greater:
			// op is stale: the row already reflects something newer.
			return outcomeDropped, nil, nil
		default: // Concurrent
			return a.recordConflict(tx, op, rs)
		}
	}
	return outcomeDropped, nil, nil
}

func (a *Applier) commitRow(tx *txn.Transaction, op *synclog.Operation, opVC *causality.VectorClock, present bool) (outcome, *ConflictRecord, error) {
	rs := &rowState{
		Present:  present,
		LastOpID: op.OpID,
		LastVC:   cloneClock(opVC),
	}
	if present {
		rs.EncodedValues = op.NewValues
	}
	if err := saveRowState(tx, op.TableName, op.RowPK, rs); err != nil {
		return outcomeDropped, nil, err
	}
	return outcomeApplied, nil, nil
}

func (a *Applier) recordConflict(tx *txn.Transaction, op *synclog.Operation, rs *rowState) (outcome, *ConflictRecord, error) {
	c := &ConflictRecord{
		ConflictID:      idcodec.NewID(),
		TableName:       op.TableName,
		RowPK:           op.RowPK,
		LocalOpID:       rs.LastOpID,
		RemoteOpID:      op.OpID,
		DetectedAt:      time.Now().UnixMicro(),
		ResolutionState: ResolutionUnresolved,
	}
	if err := putConflict(tx, c); err != nil {
		return outcomeDropped, nil, err
	}
	rs.OpenConflictID = c.ConflictID
	if err := saveRowState(tx, op.TableName, op.RowPK, rs); err != nil {
		return outcomeDropped, nil, err
	}
	return outcomeConflict, c, nil
}

func (a *Applier) resolveConflict(tx *txn.Transaction, conflictID, winningOpID idcodec.ID) error {
	c, ok, err := findConflict(tx, conflictID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.ResolutionState = ResolutionResolved
	c.WinningOpID = winningOpID
	return putConflict(tx, c)
}

func cloneClock(vc *causality.VectorClock) map[string]uint64 {
	out := make(map[string]uint64, len(vc.Clocks))
	for d, c := range vc.Clocks {
		out[string(d)] = c
	}
	return out
}
