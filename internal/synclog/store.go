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

package synclog

import (
	"encoding/json"
	"sync"

	"syncengine/internal/causality"
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
)

const (
	opKeyPrefix    = "sync_operations:"
	enabledPrefix  = "sync_enabled_tables:"
	devicePrefix   = "sync_device:"
	deviceIDKey    = devicePrefix + "self"
	vectorClockKey = "sync_vector_clock:self"
)

// Store is the operation-log repository: an in-memory index over
// sync_operations, sync_enabled_tables, sync_device, and
// sync_vector_clock, all persisted through the shared storage engine.
type Store struct {
	mu sync.RWMutex

	engine storage.Engine

	deviceID      causality.DeviceID
	localClock    *causality.VectorClock
	lastOpID      map[causality.DeviceID]idcodec.ID // last op_id written by each device, for parent_op_id chaining
	enabledTables map[string]bool
	ops           map[idcodec.ID]*Operation
}

// Open loads (or initializes) the operation log backed by engine. If no
// device identity has been persisted yet, one is minted and stored.
func Open(engine storage.Engine) (*Store, error) {
	s := &Store{
		engine:        engine,
		localClock:    causality.NewVectorClock(),
		lastOpID:      make(map[causality.DeviceID]idcodec.ID),
		enabledTables: make(map[string]bool),
		ops:           make(map[idcodec.ID]*Operation),
	}

	if err := s.loadDeviceID(); err != nil {
		return nil, err
	}
	if err := s.loadVectorClock(); err != nil {
		return nil, err
	}
	if err := s.loadEnabledTables(); err != nil {
		return nil, err
	}
	if err := s.loadOperations(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadDeviceID() error {
	val, err := s.engine.Get(deviceIDKey)
	if err == nil {
		s.deviceID = causality.DeviceID(val)
		return nil
	}
	// Not found: mint a new device identity and persist it.
	s.deviceID = causality.DeviceID(idcodec.NewID())
	return s.engine.Put(deviceIDKey, []byte(s.deviceID))
}

func (s *Store) loadVectorClock() error {
	val, err := s.engine.Get(vectorClockKey)
	if err != nil {
		return nil // fresh device, empty clock
	}
	vc, err := causality.Decode(val)
	if err != nil {
		return errors.NewDatabaseError("corrupt local vector clock").WithCause(err)
	}
	s.localClock = vc
	return nil
}

func (s *Store) persistVectorClock() error {
	return s.engine.Put(vectorClockKey, s.localClock.Encode())
}

func (s *Store) loadEnabledTables() error {
	data, err := s.engine.Scan(enabledPrefix)
	if err != nil {
		return nil
	}
	for key := range data {
		table := key[len(enabledPrefix):]
		s.enabledTables[table] = true
	}
	return nil
}

func (s *Store) loadOperations() error {
	data, err := s.engine.Scan(opKeyPrefix)
	if err != nil {
		return nil
	}
	for _, raw := range data {
		var op Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			continue
		}
		opCopy := op
		s.ops[opCopy.OpID] = &opCopy
		if opCopy.IsLocal {
			if existing, ok := s.lastOpID[opCopy.DeviceID]; !ok || idcodec.Compare(opCopy.OpID, existing) > 0 {
				s.lastOpID[opCopy.DeviceID] = opCopy.OpID
			}
		}
	}
	return nil
}

// DeviceID returns this device's identity.
func (s *Store) DeviceID() causality.DeviceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceID
}

// LocalClock returns a snapshot of the local vector clock.
func (s *Store) LocalClock() *causality.VectorClock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localClock.Copy()
}

// IsTableEnabled reports whether name has been opted into sync.
func (s *Store) IsTableEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabledTables[name]
}

// EnabledTables returns every table name opted into sync, for callers
// like a bundle export that need to snapshot every table's schema
// without the caller already knowing the table list.
func (s *Store) EnabledTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.enabledTables))
	for name := range s.enabledTables {
		names = append(names, name)
	}
	return names
}

// EnableSyncForTable opts a table into capture. It is idempotent: calling
// it twice for the same table is a no-op.
func (s *Store) EnableSyncForTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabledTables[name] {
		return nil
	}
	if err := s.engine.Put(enabledPrefix+name, []byte{1}); err != nil {
		return errors.NewDatabaseError("failed to persist enabled table").WithCause(err)
	}
	s.enabledTables[name] = true
	return nil
}

// GetOperation returns a previously-stored operation by id.
func (s *Store) GetOperation(id idcodec.ID) (*Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	return op, ok
}

// AllOperations returns every operation currently in the log. Order is
// unspecified; callers needing a deterministic order should run the
// result through syncorder.Order.
func (s *Store) AllOperations() []*Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Operation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, op)
	}
	return out
}

// GetNewOperations returns every locally-known operation whose
// originating device's counter exceeds sinceVC's counter for that
// device -- the set a peer hasn't seen yet.
func (s *Store) GetNewOperations(sinceVC *causality.VectorClock) []*Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Operation
	for _, op := range s.ops {
		if op.DeviceCounter() > sinceVC.Get(causality.DeviceID(op.DeviceID)) {
			out = append(out, op)
		}
	}
	return out
}

// putOperation persists op to the engine and updates the in-memory index.
// Callers must hold s.mu.
func (s *Store) putOperation(op *Operation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return errors.NewDatabaseError("failed to serialize operation").WithCause(err)
	}
	if err := s.engine.Put(opKeyPrefix+string(op.OpID), data); err != nil {
		return errors.NewDatabaseError("failed to persist operation").WithCause(err)
	}
	s.ops[op.OpID] = op
	return nil
}
