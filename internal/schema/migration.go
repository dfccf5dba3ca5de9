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
Package schema tracks each opted-in table's schema_version and the
additive migrations that advanced it, per §4.8. Only ADD_COLUMN is
first-class: every migration bumps the table's version by exactly one
and emits a SCHEMA_MIGRATION operation so it replicates the same way a
row mutation would.

There is no SQL executor behind this (see internal/syncapply's rowState
for the same black-box framing); "altering the local table" is
represented concretely as advancing the table's tracked schema_version,
which is the only part of a migration the sync engine itself reasons
about.
*/
package schema

import (
	"encoding/json"
	"time"

	"syncengine/internal/idcodec"
)

// Kind enumerates migration kinds. ADD_COLUMN is the only first-class
// kind per §4.8.
type Kind string

const KindAddColumn Kind = "ADD_COLUMN"

// Migration is the persisted record of one schema change, per spec.md
// §3's Schema Migration tuple.
type Migration struct {
	MigrationID  idcodec.ID        `json:"migration_id"`
	TableName    string            `json:"table_name"`
	Kind         Kind              `json:"kind"`
	ColumnName   string            `json:"column_name"`
	ColumnType   idcodec.ValueType `json:"column_type"`
	DefaultValue idcodec.Value     `json:"default_value"`
	CreatedAt    int64             `json:"created_at"`
	AppliedAt    int64             `json:"applied_at,omitempty"`
	FromVersion  int               `json:"from_version"`
	ToVersion    int               `json:"to_version"`
}

func newMigration(table, column string, colType idcodec.ValueType, defaultValue idcodec.Value, fromVersion int) *Migration {
	return &Migration{
		MigrationID:  idcodec.NewID(),
		TableName:    table,
		Kind:         KindAddColumn,
		ColumnName:   column,
		ColumnType:   colType,
		DefaultValue: defaultValue,
		CreatedAt:    time.Now().UnixMicro(),
		FromVersion:  fromVersion,
		ToVersion:    fromVersion + 1,
	}
}

func marshalMigration(m *Migration) ([]byte, error) { return json.Marshal(m) }

func unmarshalMigration(b []byte) (*Migration, error) {
	var m Migration
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// values encodes the migration's ADD_COLUMN payload the way a captured
// operation carries its new_values: one entry per described change,
// so the SCHEMA_MIGRATION op is self-describing to a receiving peer.
func (m *Migration) values() map[string]idcodec.Value {
	return map[string]idcodec.Value{
		"migration_id": idcodec.BlobValue([]byte(m.MigrationID)),
		"kind":         idcodec.TextValue(string(m.Kind)),
		"column_name":  idcodec.TextValue(m.ColumnName),
		"column_type":  idcodec.IntValue(int64(m.ColumnType)),
		"default":      m.DefaultValue,
	}
}
