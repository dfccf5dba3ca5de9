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

package syncexec

import (
	"context"

	"syncengine/internal/audit"
	"syncengine/internal/storage"
	"syncengine/internal/syncapply"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

// Executor wraps an Applier with checkpoint bracketing and exposes a
// general atomic_operation scope for callers that need a transaction
// with guaranteed commit-or-rollback but aren't applying a sync batch
// (e.g. internal/schema writing a migration record).
type Executor struct {
	engine  storage.Engine
	log     *synclog.Store
	applier *syncapply.Applier
	audit   *audit.Manager
}

func NewExecutor(engine storage.Engine, log *synclog.Store, applier *syncapply.Applier) *Executor {
	return &Executor{engine: engine, log: log, applier: applier}
}

// SetAuditManager attaches an audit manager that records checkpoint
// lifecycle events. Optional; a nil or never-set manager means
// ApplyBundle/RecoverCheckpoints simply don't emit audit events.
func (e *Executor) SetAuditManager(m *audit.Manager) {
	e.audit = m
}

func (e *Executor) logAudit(eventType audit.EventType, status audit.Status, objectName string, errMsg string) {
	if e.audit == nil {
		return
	}
	e.audit.LogEvent(audit.Event{
		EventType:    eventType,
		ObjectType:   "checkpoint",
		ObjectName:   objectName,
		Status:       status,
		ErrorMessage: errMsg,
	})
}

// AtomicOperation runs fn inside a transaction, committing on success
// and rolling back on error or panic.
func (e *Executor) AtomicOperation(ctx context.Context, fn func(tx *txn.Transaction) error) error {
	return txn.Run(e.engine, func(tx *txn.Transaction) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return fn(tx)
	})
}

// ApplyBundle runs the three-phase protocol of §4.7 around a single
// ordered, deduped batch of operations: persist an in_progress
// checkpoint, apply the batch, then mark the checkpoint committed. On
// failure the checkpoint is marked aborted -- the batch's own
// transaction already rolled back any partial user-visible change --
// and the caller may retry with the same ops, safe because dedup will
// skip whatever already landed.
func (e *Executor) ApplyBundle(ctx context.Context, ops []*synclog.Operation) (syncapply.BatchResult, error) {
	if len(ops) == 0 {
		return syncapply.BatchResult{}, nil
	}

	checkpoint, err := beginCheckpoint(e.engine, e.log, ops)
	if err != nil {
		return syncapply.BatchResult{}, err
	}
	e.logAudit(audit.EventTypeCheckpointStarted, audit.StatusSuccess, string(checkpoint.CheckpointID), "")

	result, applyErr := e.applier.ApplyBatch(ctx, ops)
	if applyErr != nil {
		if err := abortCheckpoint(e.engine, checkpoint); err != nil {
			return syncapply.BatchResult{}, err
		}
		e.logAudit(audit.EventTypeCheckpointAborted, audit.StatusFailed, string(checkpoint.CheckpointID), applyErr.Error())
		return syncapply.BatchResult{}, applyErr
	}

	if err := commitCheckpoint(e.engine, checkpoint); err != nil {
		return syncapply.BatchResult{}, err
	}
	e.logAudit(audit.EventTypeCheckpointCommitted, audit.StatusSuccess, string(checkpoint.CheckpointID), "")
	return result, nil
}

// RecoverCheckpoints is run once at startup. Any checkpoint still
// in_progress means the process died mid-ApplyBundle; its ops are
// re-applied verbatim, relying on syncorder.Dedup having already been
// run upstream and on ApplyBatch's own per-op idempotence for whatever
// fraction of the batch actually landed before the crash.
func (e *Executor) RecoverCheckpoints(ctx context.Context) ([]syncapply.BatchResult, error) {
	pending, err := inProgressCheckpoints(e.engine)
	if err != nil {
		return nil, err
	}

	var results []syncapply.BatchResult
	for _, checkpoint := range pending {
		ops := make([]*synclog.Operation, 0, len(checkpoint.OpIDs))
		for _, id := range checkpoint.OpIDs {
			if op, ok := e.log.GetOperation(id); ok {
				ops = append(ops, op)
			}
		}

		result, applyErr := e.applier.ApplyBatch(ctx, ops)
		if applyErr != nil {
			if err := abortCheckpoint(e.engine, checkpoint); err != nil {
				return results, err
			}
			e.logAudit(audit.EventTypeCheckpointAborted, audit.StatusFailed, string(checkpoint.CheckpointID), applyErr.Error())
			return results, applyErr
		}
		if err := commitCheckpoint(e.engine, checkpoint); err != nil {
			return results, err
		}
		e.logAudit(audit.EventTypeCheckpointCommitted, audit.StatusSuccess, string(checkpoint.CheckpointID), "")
		results = append(results, result)
	}
	return results, nil
}
