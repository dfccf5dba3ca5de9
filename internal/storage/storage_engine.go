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
Storage Engine Interface
========================

This file defines the StorageEngine interface and its statistics. The
one implementation, diskEngine in engine.go, appends every mutation to a
write-ahead log (optionally encrypted) and keeps all keys and values in
an in-memory map that is rebuilt by replaying the WAL on startup. There
is no page file and no buffer pool.

Architecture Overview:
======================

	┌─────────────────────────────────────────────────────────────────┐
	│     Callers (operation log, audit log, checkpoint executor)     │
	└─────────────────────────────────────────────────────────────────┘
	                              │
	                              ▼
	┌─────────────────────────────────────────────────────────────────┐
	│                   StorageEngine Interface                       │
	│         (Put, Get, Delete, Scan, Close, Sync, Stats)            │
	└─────────────────────────────────────────────────────────────────┘
	                              │
	                              ▼
	┌─────────────────────────────────────────────────────────────────┐
	│                        diskEngine                               │
	│   - In-memory map of every key and value                        │
	│   - Write-Ahead Log (WAL), replayed in full on startup          │
	│   - Optional WAL encryption                                     │
	└─────────────────────────────────────────────────────────────────┘

Performance Characteristics:
============================

	| Operation | Cost                  |
	|-----------|-----------------------|
	| Put       | O(1) + WAL append     |
	| Get       | O(1)                  |
	| Delete    | O(1) + WAL append     |
	| Scan      | O(N) over all keys    |
*/
package storage

import (
	"errors"
	"fmt"
)

// StorageEngineType represents the type of storage engine.
// syncengine uses a unified disk-based storage engine for all deployments.
type StorageEngineType string

const (
	// EngineTypeMemory is kept for backward compatibility but is not used.
	// All storage uses the WAL-backed disk engine.
	EngineTypeMemory StorageEngineType = "memory"

	// EngineTypeDisk is the WAL-backed engine with an in-memory index.
	// This is the only engine type used in production.
	EngineTypeDisk StorageEngineType = "disk"
)

// ErrEngineNotSupported is returned when an unsupported engine type is requested.
var ErrEngineNotSupported = errors.New("storage engine type not supported")

// StorageEngine extends the basic Engine interface with additional capabilities
// for the unified disk-based storage engine.
//
// This interface lets the engine's components work with the storage
// backend without knowing the implementation details.
type StorageEngine interface {
	Engine // Embed the basic Engine interface (Put, Get, Delete, Scan, Close)

	// Sync forces all pending writes to be persisted to durable storage.
	// This fsyncs the WAL file.
	//
	// This is called during checkpoint operations and before shutdown.
	Sync() error

	// Stats returns statistics about the storage engine.
	// This includes key count, data size, WAL size and checkpoint counters.
	Stats() EngineStats

	// Type returns the type of this storage engine.
	Type() StorageEngineType

	// WAL returns the underlying Write-Ahead Log.
	// This is needed for replication and recovery.
	WAL() *WAL

	// IsEncrypted returns true if the storage engine uses encryption.
	IsEncrypted() bool
}

// EngineStats contains statistics about the storage engine.
// These metrics are useful for monitoring and performance tuning.
type EngineStats struct {
	// Common stats
	KeyCount    int64 // Total number of keys in the store
	DataSize    int64 // Approximate size of all data in bytes
	WALSize     int64 // Size of the WAL file in bytes
	EngineType  StorageEngineType
	IsEncrypted bool

	// Buffer pool and disk I/O stats. diskEngine has no buffer pool or
	// pages, so the BufferPool*, CacheHitRate, Page* and DirtyPages fields
	// stay zero.
	BufferPoolSize  int64   // Total buffer pool size in bytes
	BufferPoolUsed   int64   // Used buffer pool size in bytes
	CacheHitRate     float64 // Percentage of reads served from buffer pool (0-100)
	PageReads        int64   // Total page reads from disk
	PageWrites       int64   // Total page writes to disk
	DirtyPages       int64   // Number of dirty pages in buffer pool
	CheckpointCount  int64   // Number of checkpoints performed
	LastCheckpointAt int64   // Unix timestamp of last checkpoint
}

// String returns a human-readable representation of the engine stats.
func (s EngineStats) String() string {
	return fmt.Sprintf(
		"Engine: %s, Keys: %d, DataSize: %d bytes, WALSize: %d bytes, Encrypted: %v",
		s.EngineType, s.KeyCount, s.DataSize, s.WALSize, s.IsEncrypted,
	)
}
