/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncexec

import (
	"time"

	"syncengine/internal/causality"
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
)

const checkpointPrefix = "sync_checkpoints:"

func checkpointKey(id idcodec.ID) string { return checkpointPrefix + string(id) }

// beginCheckpoint persists a new in_progress checkpoint for ops. Only
// one in_progress checkpoint may exist at a time per device; callers
// must run RecoverCheckpoints before starting new work so a crash
// doesn't leave two in flight.
func beginCheckpoint(engine storage.Engine, log *synclog.Store, ops []*synclog.Operation) (*Checkpoint, error) {
	opIDs := make([]idcodec.ID, len(ops))
	for i, op := range ops {
		opIDs[i] = op.OpID
	}
	var lastID idcodec.ID
	if len(ops) > 0 {
		lastID = ops[len(ops)-1].OpID
	}

	c := &Checkpoint{
		CheckpointID:       idcodec.NewID(),
		StartedAt:          time.Now().UnixMicro(),
		LastAppliedOpID:    lastID,
		VectorClockAtStart: stringClockMap(log.LocalClock().Clocks),
		Status:             StatusInProgress,
		OpIDs:              opIDs,
	}
	data, err := marshalCheckpoint(c)
	if err != nil {
		return nil, err
	}
	if err := engine.Put(checkpointKey(c.CheckpointID), data); err != nil {
		return nil, errors.NewDatabaseError("failed to persist checkpoint").WithCause(err)
	}
	return c, nil
}

func commitCheckpoint(engine storage.Engine, c *Checkpoint) error {
	c.Status = StatusCommitted
	return putCheckpoint(engine, c)
}

func abortCheckpoint(engine storage.Engine, c *Checkpoint) error {
	c.Status = StatusAborted
	return putCheckpoint(engine, c)
}

func putCheckpoint(engine storage.Engine, c *Checkpoint) error {
	data, err := marshalCheckpoint(c)
	if err != nil {
		return err
	}
	if err := engine.Put(checkpointKey(c.CheckpointID), data); err != nil {
		return errors.NewDatabaseError("failed to persist checkpoint").WithCause(err)
	}
	return nil
}

// inProgressCheckpoints returns every checkpoint currently in_progress,
// evidence of a batch that was interrupted mid-apply.
func inProgressCheckpoints(engine storage.Engine) ([]*Checkpoint, error) {
	data, err := engine.Scan(checkpointPrefix)
	if err != nil {
		return nil, nil
	}
	var out []*Checkpoint
	for _, raw := range data {
		c, err := unmarshalCheckpoint(raw)
		if err != nil {
			return nil, errors.NewDatabaseError("corrupt checkpoint record").WithCause(err)
		}
		if c.Status == StatusInProgress {
			out = append(out, c)
		}
	}
	return out, nil
}

func stringClockMap(in map[causality.DeviceID]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
