/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package schema

import (
	"sync"

	"syncengine/internal/audit"
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
	"syncengine/internal/txn"
)

const (
	migrationPrefix = "sync_schema_migrations:"
	versionPrefix   = "sync_schema_version:"
)

// Store tracks each table's schema_version and the additive migrations
// that produced it.
type Store struct {
	mu       sync.RWMutex
	engine   storage.Engine
	log      *synclog.Store
	versions map[string]int
	audit    *audit.Manager
}

// SetAuditManager attaches an audit manager that records applied
// migrations. Optional; without one, AddColumn simply doesn't emit
// audit events.
func (s *Store) SetAuditManager(m *audit.Manager) {
	s.audit = m
}

// Open loads persisted schema versions for every table that has one.
func Open(engine storage.Engine, log *synclog.Store) (*Store, error) {
	s := &Store{engine: engine, log: log, versions: make(map[string]int)}

	data, err := engine.Scan(versionPrefix)
	if err != nil {
		return s, nil
	}
	for key, raw := range data {
		table := key[len(versionPrefix):]
		s.versions[table] = decodeVersion(raw)
	}
	return s, nil
}

// Version returns table's current schema_version, 0 if it has never
// been migrated.
func (s *Store) Version(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[table]
}

// CheckCompatibility reports whether a bundle built against
// remoteVersion can be applied locally. Because only additive
// migrations are first-class, any remote version at or behind the
// local version is automatically compatible -- the local table already
// carries every additive change the remote side assumed. A remote
// version ahead of local is incompatible until the matching
// SCHEMA_MIGRATION ops are applied first.
func (s *Store) CheckCompatibility(table string, remoteVersion int) bool {
	return remoteVersion <= s.Version(table)
}

// AddColumn records a new additive migration for table, bumps its
// schema_version, and emits a SCHEMA_MIGRATION operation so the change
// replicates to every peer. All of this -- the migration record, the
// version bump, and the operation-log entry -- is staged into tx, so a
// caller that rolls tx back sees no trace of the migration: the version
// table's in-memory cache unwinds via a registered rollback hook, and
// any audit event is deferred to a commit hook so a rolled-back
// migration is never reported as applied.
func (s *Store) AddColumn(tx *txn.Transaction, table, column string, colType idcodec.ValueType, defaultValue idcodec.Value) (*Migration, error) {
	if !s.log.IsTableEnabled(table) {
		return nil, errors.UnknownTable(table)
	}

	s.mu.Lock()
	fromVersion := s.versions[table]
	s.mu.Unlock()

	m := newMigration(table, column, colType, defaultValue, fromVersion)

	op, err := s.log.Capture(tx, table, synclog.OpSchemaMigration, []byte(table), nil, m.values(), m.ToVersion)
	if err != nil {
		return nil, err
	}
	m.AppliedAt = op.CreatedAt

	data, err := marshalMigration(m)
	if err != nil {
		return nil, err
	}
	if err := tx.Put(migrationPrefix+string(m.MigrationID), data); err != nil {
		return nil, err
	}
	if err := tx.Put(versionPrefix+table, encodeVersion(m.ToVersion)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.versions[table] = m.ToVersion
	s.mu.Unlock()

	tx.OnRollback(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.versions[table] = fromVersion
	})

	if s.audit != nil {
		tx.OnCommit(func() {
			s.audit.LogEvent(audit.Event{
				EventType:  audit.EventTypeSchemaMigrationApplied,
				TableName:  table,
				ObjectType: "migration",
				ObjectName: string(m.MigrationID),
				Operation:  "add_column:" + column,
				Status:     audit.StatusSuccess,
			})
		})
	}

	return m, nil
}

// ApplyRemoteMigration folds an incoming SCHEMA_MIGRATION operation
// into the local schema version, advancing it to op.SchemaVersion.
// Applying the same migration twice (idempotent replay, or a
// migration already adopted locally via AddColumn) is a no-op.
func (s *Store) ApplyRemoteMigration(op *synclog.Operation) error {
	if op.OpType != synclog.OpSchemaMigration {
		return errors.NewValidationError("not a schema migration operation")
	}
	if op.SchemaVersion <= s.Version(op.TableName) {
		return nil
	}
	return s.setVersion(op.TableName, op.SchemaVersion)
}

func (s *Store) setVersion(table string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Put(versionPrefix+table, encodeVersion(version)); err != nil {
		return errors.NewDatabaseError("failed to persist schema version").WithCause(err)
	}
	s.versions[table] = version
	return nil
}

func encodeVersion(v int) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeVersion(b []byte) int {
	var v int
	for i := 0; i < len(b) && i < 8; i++ {
		v |= int(b[i]) << (8 * i)
	}
	return v
}
