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
Package txn provides the scoped transaction contract the apply pipeline
opens one of per batch (§4.5/§4.7): a write-set buffered in memory until
Commit, so a batch either lands in full against the storage engine or
not at all, even though the underlying engine itself commits each Put
durably as it happens. This generalizes internal/sdk.Transaction's
state machine (Active/Committed/RolledBack/Failed) from a SQL client
session to the sync engine's own internal apply transactions.
*/
package txn

import (
	"sync"
	"time"

	"syncengine/internal/errors"
	"syncengine/internal/storage"
)

// State mirrors internal/sdk.TransactionState's state names, generalized
// beyond SQL-client sessions to any scoped apply transaction.
type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateCommitted:
		return "COMMITTED"
	case StateRolledBack:
		return "ROLLED_BACK"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Transaction buffers Put/Delete calls against an engine until Commit,
// at which point the writes are applied in order; Rollback discards
// them untouched.
type Transaction struct {
	mu sync.Mutex

	engine    storage.Engine
	state     State
	startedAt time.Time

	writes  []string // ordered keys, to preserve last-write-wins semantics within the batch
	puts    map[string][]byte
	deletes map[string]bool

	commitHooks   []func() // run, in order, once Commit succeeds
	rollbackHooks []func() // run, in reverse order, once Rollback completes
}

func begin(engine storage.Engine) *Transaction {
	return &Transaction{
		engine:    engine,
		state:     StateActive,
		startedAt: time.Now(),
		puts:      make(map[string][]byte),
		deletes:   make(map[string]bool),
	}
}

// State returns the transaction's current state.
func (tx *Transaction) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Put stages a write. Visible to Get within the same transaction, but
// not to the underlying engine until Commit.
func (tx *Transaction) Put(key string, value []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateActive {
		return errors.TransactionFailed("cannot write to a transaction that is not active")
	}
	if !tx.deletes[key] {
		tx.writes = append(tx.writes, key)
	}
	delete(tx.deletes, key)
	tx.puts[key] = value
	return nil
}

// Delete stages a delete.
func (tx *Transaction) Delete(key string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateActive {
		return errors.TransactionFailed("cannot write to a transaction that is not active")
	}
	delete(tx.puts, key)
	if !tx.deletes[key] {
		tx.writes = append(tx.writes, key)
	}
	tx.deletes[key] = true
	return nil
}

// OnCommit registers fn to run after Commit succeeds, for callers that
// keep an in-memory cache alongside the engine and only want it to
// reflect a write once that write is actually durable.
func (tx *Transaction) OnCommit(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.commitHooks = append(tx.commitHooks, fn)
}

// OnRollback registers fn to run after Rollback, for callers that
// updated an in-memory cache optimistically (ahead of Commit, to keep
// intra-transaction sequencing correct) and need to undo that update
// if the transaction never lands. Hooks run in reverse registration
// order, so the most recent optimistic update unwinds first.
func (tx *Transaction) OnRollback(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.rollbackHooks = append(tx.rollbackHooks, fn)
}

// Get reads key, preferring the transaction's own uncommitted write set
// (so a batch can read its own writes) and falling back to the engine.
func (tx *Transaction) Get(key string) ([]byte, error) {
	tx.mu.Lock()
	if tx.deletes[key] {
		tx.mu.Unlock()
		return nil, errors.NewDatabaseError("key not found").WithDetail(key)
	}
	if v, ok := tx.puts[key]; ok {
		tx.mu.Unlock()
		return v, nil
	}
	tx.mu.Unlock()
	return tx.engine.Get(key)
}

// Commit applies every staged write to the engine, in staging order.
// If any individual write fails partway, the transaction is marked
// Failed; the caller's atomic_operation wrapper treats this the same as
// an uncommitted checkpoint on restart (see internal/syncexec).
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	if tx.state != StateActive {
		tx.mu.Unlock()
		return errors.TransactionFailed("cannot commit a transaction that is not active")
	}
	for _, key := range tx.writes {
		if tx.deletes[key] {
			if err := tx.engine.Delete(key); err != nil {
				tx.state = StateFailed
				tx.mu.Unlock()
				return errors.TransactionFailed("commit failed on delete").WithCause(err)
			}
			continue
		}
		if err := tx.engine.Put(key, tx.puts[key]); err != nil {
			tx.state = StateFailed
			tx.mu.Unlock()
			return errors.TransactionFailed("commit failed on put").WithCause(err)
		}
	}
	tx.state = StateCommitted
	hooks := tx.commitHooks
	tx.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return nil
}

// Rollback discards the staged write set without touching the engine,
// then runs any registered rollback hooks in reverse order.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	if tx.state != StateActive {
		tx.mu.Unlock()
		return nil
	}
	tx.state = StateRolledBack
	hooks := tx.rollbackHooks
	tx.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	return nil
}

// Duration reports how long the transaction has been open.
func (tx *Transaction) Duration() time.Duration {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return time.Since(tx.startedAt)
}
