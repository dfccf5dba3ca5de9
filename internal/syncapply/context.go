/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncapply

import (
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

// ConflictContext carries everything a resolver needs to decide a
// conflict: both competing operations, their decoded value images, and
// the row's current (unresolved) image, per §4.6.
type ConflictContext struct {
	Conflict      *ConflictRecord
	LocalOp       *synclog.Operation
	RemoteOp      *synclog.Operation
	LocalValues   map[string]idcodec.Value
	RemoteValues  map[string]idcodec.Value
	CurrentValues map[string]idcodec.Value
}

// LoadConflict reads a conflict record directly from engine (outside
// any apply transaction), for read-mostly callers like a CLI "resolve"
// command or the resolver registry.
func LoadConflict(engine storage.Engine, id idcodec.ID) (*ConflictRecord, bool, error) {
	raw, err := engine.Get(conflictKey(id))
	if err != nil {
		return nil, false, nil
	}
	c, err := unmarshalConflict(raw)
	if err != nil {
		return nil, false, errors.NewDatabaseError("corrupt conflict record").WithCause(err)
	}
	return c, true, nil
}

// ListConflicts returns every recorded conflict, optionally filtered to
// only those still unresolved, for read-mostly callers like a CLI
// "resolve" or "status" command (§5's get_unresolved_conflicts reader
// operation).
func ListConflicts(engine storage.Engine, unresolvedOnly bool) ([]*ConflictRecord, error) {
	data, err := engine.Scan(conflictPrefix)
	if err != nil {
		return nil, nil
	}
	out := make([]*ConflictRecord, 0, len(data))
	for _, raw := range data {
		c, err := unmarshalConflict(raw)
		if err != nil {
			return nil, errors.NewDatabaseError("corrupt conflict record").WithCause(err)
		}
		if unresolvedOnly && c.ResolutionState != ResolutionUnresolved {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// BuildConflictContext assembles a ConflictContext for conflict c.
func BuildConflictContext(engine storage.Engine, log *synclog.Store, c *ConflictRecord) (*ConflictContext, error) {
	ctx := &ConflictContext{Conflict: c}

	if localOp, ok := log.GetOperation(c.LocalOpID); ok {
		ctx.LocalOp = localOp
		if len(localOp.NewValues) > 0 {
			values, err := idcodec.DecodeValues(localOp.NewValues)
			if err != nil {
				return nil, errors.NewDatabaseError("corrupt local operation values").WithCause(err)
			}
			ctx.LocalValues = values
		}
	}
	if remoteOp, ok := log.GetOperation(c.RemoteOpID); ok {
		ctx.RemoteOp = remoteOp
		if len(remoteOp.NewValues) > 0 {
			values, err := idcodec.DecodeValues(remoteOp.NewValues)
			if err != nil {
				return nil, errors.NewDatabaseError("corrupt remote operation values").WithCause(err)
			}
			ctx.RemoteValues = values
		}
	}

	raw, err := engine.Get(rowKey(c.TableName, c.RowPK))
	if err == nil {
		var rs rowState
		if uErr := unmarshalRowState(raw, &rs); uErr == nil && rs.Present {
			values, dErr := rs.decodedValues()
			if dErr != nil {
				return nil, errors.NewDatabaseError("corrupt row state values").WithCause(dErr)
			}
			ctx.CurrentValues = values
		}
	}
	return ctx, nil
}

// ApplyResolution records a resolver's decision: it marks the conflict
// resolved (or deferred, for Manual/undecided outcomes), updates the row
// state to the chosen values, and -- when resolved -- synthesizes a new
// local operation reflecting those values so the resolution itself
// replicates to every peer (§4.6). The conflict record, the row state,
// and the synthesized operation all land through a single internal
// transaction, so a storage failure partway through never leaves the
// conflict marked resolved without the row state (or operation) that
// resolution was supposed to produce.
func ApplyResolution(engine storage.Engine, log *synclog.Store, resolverName string, ctx *ConflictContext, resolved bool, deleted bool, values map[string]idcodec.Value) (*synclog.Operation, error) {
	c := ctx.Conflict
	var op *synclog.Operation

	err := txn.Run(engine, func(tx *txn.Transaction) error {
		if !resolved {
			c.ResolutionState = ResolutionDeferred
			c.ResolvedBy = resolverName
			data, err := marshalConflict(c)
			if err != nil {
				return err
			}
			return tx.Put(conflictKey(c.ConflictID), data)
		}

		opType := synclog.OpUpdate
		if deleted {
			opType = synclog.OpDelete
		}
		schemaVersion := schemaVersionOf(ctx)

		var err error
		op, err = log.Capture(tx, c.TableName, opType, c.RowPK, nil, values, schemaVersion)
		if err != nil {
			return err
		}

		rs := &rowState{
			Present:  !deleted,
			LastOpID: op.OpID,
			LastVC:   op.VectorClock,
		}
		if !deleted {
			rs.EncodedValues = idcodec.EncodeValues(values)
		}
		rowData, err := marshalRowState(rs)
		if err != nil {
			return err
		}
		if err := tx.Put(rowKey(c.TableName, c.RowPK), rowData); err != nil {
			return err
		}

		c.ResolutionState = ResolutionResolved
		c.ResolvedBy = resolverName
		c.WinningOpID = op.OpID
		conflictData, err := marshalConflict(c)
		if err != nil {
			return err
		}
		return tx.Put(conflictKey(c.ConflictID), conflictData)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// schemaVersionOf picks the higher of the two competing ops' schema
// versions, so the synthesized resolution op never regresses a table's
// recorded schema version.
func schemaVersionOf(ctx *ConflictContext) int {
	v := 0
	if ctx.LocalOp != nil && ctx.LocalOp.SchemaVersion > v {
		v = ctx.LocalOp.SchemaVersion
	}
	if ctx.RemoteOp != nil && ctx.RemoteOp.SchemaVersion > v {
		v = ctx.RemoteOp.SchemaVersion
	}
	return v
}
