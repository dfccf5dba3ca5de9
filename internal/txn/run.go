/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package txn

import "syncengine/internal/storage"

// Run opens a Transaction against engine, invokes fn, and guarantees
// commit-or-rollback on every exit path: fn returning an error or
// panicking both roll the transaction back before the panic/error
// propagates; fn returning nil commits.
func Run(engine storage.Engine, fn func(tx *Transaction) error) (err error) {
	tx := begin(engine)
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
