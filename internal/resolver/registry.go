/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package resolver

import (
	"sync"

	"syncengine/internal/audit"
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/syncapply"
)

// Registry holds named resolvers and applies them to recorded
// conflicts, per §4.6's resolver registry.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
	engine    storage.Engine
	log       *synclog.Store
	audit     *audit.Manager
}

// SetAuditManager attaches an audit manager that records conflict
// resolution events. Optional; without one, Apply simply doesn't emit
// audit events.
func (r *Registry) SetAuditManager(m *audit.Manager) {
	r.audit = m
}

// NewRegistry returns a Registry with the standard built-ins already
// registered under their conventional names.
func NewRegistry(engine storage.Engine, log *synclog.Store) *Registry {
	r := &Registry{
		resolvers: make(map[string]Resolver),
		engine:    engine,
		log:       log,
	}
	r.Register("last_write_wins", LastWriteWins())
	r.Register("field_merge", FieldMerge(false))
	r.Register("field_merge_prefer_local", FieldMerge(true))
	r.Register("manual", Manual())
	return r
}

// Register adds or replaces the resolver known by name.
func (r *Registry) Register(name string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[name] = resolver
}

// Apply loads conflictID, dispatches it to the named resolver, and
// commits the outcome via syncapply.ApplyResolution. It returns the
// synthesized operation when the resolver actually resolved the
// conflict, or a nil operation when it deferred.
func (r *Registry) Apply(conflictID idcodec.ID, resolverName string) (*synclog.Operation, error) {
	r.mu.RLock()
	res, ok := r.resolvers[resolverName]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewValidationError("unknown resolver").WithDetail(resolverName)
	}

	c, ok, err := syncapply.LoadConflict(r.engine, conflictID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewValidationError("unknown conflict").WithDetail(string(conflictID))
	}

	ctx, err := syncapply.BuildConflictContext(r.engine, r.log, c)
	if err != nil {
		return nil, err
	}

	outcome, err := res.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	op, err := syncapply.ApplyResolution(r.engine, r.log, resolverName, ctx, outcome.Resolved, outcome.Delete, outcome.Values)
	if err != nil {
		return nil, err
	}

	if outcome.Resolved && r.audit != nil {
		r.audit.LogEvent(audit.Event{
			EventType:  audit.EventTypeConflictResolved,
			TableName:  c.TableName,
			ObjectType: "conflict",
			ObjectName: string(conflictID),
			Operation:  resolverName,
			Status:     audit.StatusSuccess,
		})
	}

	return op, nil
}
