/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncapply

import (
	"syncengine/internal/idcodec"
	"syncengine/internal/txn"
)

const conflictPrefix = "sync_conflicts:"

func conflictKey(id idcodec.ID) string { return conflictPrefix + string(id) }

func putConflict(tx *txn.Transaction, c *ConflictRecord) error {
	data, err := marshalConflict(c)
	if err != nil {
		return err
	}
	return tx.Put(conflictKey(c.ConflictID), data)
}

// findConflict loads a previously-recorded conflict by id, used when a
// causally-superseding op needs to mark an open conflict resolved
// instead of creating a duplicate record (§4.5: "the conflict record is
// retained with resolution_state=resolved").
func findConflict(tx *txn.Transaction, id idcodec.ID) (*ConflictRecord, bool, error) {
	if id.Empty() {
		return nil, false, nil
	}
	raw, err := tx.Get(conflictKey(id))
	if err != nil {
		return nil, false, nil
	}
	c, err := unmarshalConflict(raw)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}
