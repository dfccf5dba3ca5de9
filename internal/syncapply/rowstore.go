/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncapply

import (
	"encoding/json"

	"syncengine/internal/causality"
	"syncengine/internal/idcodec"
	"syncengine/internal/txn"
)

const (
	rowStatePrefix = "sync_row_state:"
)

// rowState is the applier's own minimal representation of "the current
// row image" the §4.5 rules reason about. The actual user-table storage
// engine is out of scope (§1's "black-box embedded store"); this is the
// stand-in state the apply pipeline reads and writes so its causality
// and tombstone rules have something concrete to operate on.
type rowState struct {
	Present        bool              `json:"present"` // false once deleted; tombstones are retained, never removed
	EncodedValues  []byte            `json:"encoded_values,omitempty"`
	LastOpID       idcodec.ID        `json:"last_op_id"`
	LastVC         map[string]uint64 `json:"last_vc"`
	OpenConflictID idcodec.ID        `json:"open_conflict_id,omitempty"`
}

func rowKey(table string, pk []byte) string {
	return rowStatePrefix + table + ":" + string(pk)
}

func loadRowState(tx *txn.Transaction, table string, pk []byte) (*rowState, bool, error) {
	raw, err := tx.Get(rowKey(table, pk))
	if err != nil {
		return &rowState{}, false, nil
	}
	var rs rowState
	if err := unmarshalRowState(raw, &rs); err != nil {
		return nil, false, err
	}
	return &rs, true, nil
}

func saveRowState(tx *txn.Transaction, table string, pk []byte, rs *rowState) error {
	data, err := marshalRowState(rs)
	if err != nil {
		return err
	}
	return tx.Put(rowKey(table, pk), data)
}

func marshalRowState(rs *rowState) ([]byte, error) { return json.Marshal(rs) }

func unmarshalRowState(raw []byte, rs *rowState) error { return json.Unmarshal(raw, rs) }

func (rs *rowState) decodedValues() (map[string]idcodec.Value, error) {
	if len(rs.EncodedValues) == 0 {
		return nil, nil
	}
	return idcodec.DecodeValues(rs.EncodedValues)
}

func (rs *rowState) vectorClock() *causality.VectorClock {
	vc := causality.NewVectorClock()
	for d, c := range rs.LastVC {
		vc.Clocks[causality.DeviceID(d)] = c
	}
	return vc
}
