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

package syncbundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/storage"
	"syncengine/internal/synclog"
)

const (
	manifestKey = "bundle_manifest"
	opPrefix    = "bundle_operations:"
	schemaKey   = "bundle_schema_snapshot"
)

// encodePayload serializes b into the raw container bytes: a scratch
// storage-engine file holding bundle_manifest, bundle_operations, and
// bundle_schema_snapshot, matching the three persisted tables §6 names
// for the bundle format. The engine's WAL file bytes are the payload.
func encodePayload(b *Bundle, scratchDir string) ([]byte, error) {
	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: scratchDir, BufferPoolSize: 16})
	if err != nil {
		return nil, errors.NewDatabaseError("failed to open scratch bundle engine").WithCause(err)
	}
	defer engine.Close()

	manifestBytes, err := json.Marshal(b.Manifest)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to marshal bundle manifest").WithCause(err)
	}
	if err := engine.Put(manifestKey, manifestBytes); err != nil {
		return nil, err
	}

	for i, op := range b.Operations {
		data, err := json.Marshal(op)
		if err != nil {
			return nil, errors.NewDatabaseError("failed to marshal bundle operation").WithCause(err)
		}
		if err := engine.Put(fmt.Sprintf("%s%010d", opPrefix, i), data); err != nil {
			return nil, err
		}
	}

	schemaBytes, err := json.Marshal(b.SchemaSnapshot)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to marshal bundle schema snapshot").WithCause(err)
	}
	if err := engine.Put(schemaKey, schemaBytes); err != nil {
		return nil, err
	}

	if err := engine.Sync(); err != nil {
		return nil, err
	}
	walPath := engine.WAL().Path()
	return os.ReadFile(walPath)
}

// decodePayload reconstructs a Bundle from raw container bytes written
// by encodePayload, by replaying them through a fresh scratch engine.
func decodePayload(payload []byte, scratchDir string) (*Bundle, error) {
	walPath := filepath.Join(scratchDir, "engine.wal")
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, errors.NewDatabaseError("failed to create scratch decode dir").WithCause(err)
	}
	if err := os.WriteFile(walPath, payload, 0o600); err != nil {
		return nil, errors.NewDatabaseError("failed to stage bundle payload").WithCause(err)
	}

	engine, err := storage.NewStorageEngine(storage.StorageConfig{DataDir: scratchDir, BufferPoolSize: 16})
	if err != nil {
		return nil, errors.NewDatabaseError("failed to replay scratch bundle engine").WithCause(err)
	}
	defer engine.Close()

	manifestBytes, err := engine.Get(manifestKey)
	if err != nil {
		return nil, errors.NewBundleError("bundle payload missing manifest").WithCause(err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, errors.NewBundleError("corrupt bundle manifest").WithCause(err)
	}

	opData, err := engine.Scan(opPrefix)
	if err != nil {
		return nil, err
	}
	ops := make([]*synclog.Operation, 0, len(opData))
	keys := make([]string, 0, len(opData))
	for k := range opData {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		var op synclog.Operation
		if err := json.Unmarshal(opData[k], &op); err != nil {
			return nil, errors.NewBundleError("corrupt bundle operation record").WithCause(err)
		}
		opCopy := op
		ops = append(ops, &opCopy)
	}

	var schema []SchemaSnapshotEntry
	if schemaBytes, err := engine.Get(schemaKey); err == nil {
		if err := json.Unmarshal(schemaBytes, &schema); err != nil {
			return nil, errors.NewBundleError("corrupt bundle schema snapshot").WithCause(err)
		}
	}

	return &Bundle{Manifest: manifest, Operations: ops, SchemaSnapshot: schema}, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// sealedManifestBytes returns the canonical manifest-excluding-sha256
// encoding used for hashing: format_version=1 fixes JSON field order via
// struct tag order, so dropping sha256 before marshaling is sufficient
// for byte-stability across runs of this implementation.
func sealedManifestBytes(m Manifest) ([]byte, error) {
	m.SHA256 = ""
	return json.Marshal(m)
}

// computeSHA256 hashes the canonical manifest (sha256 field blanked)
// concatenated with the ordered operation bytes, per §6.
func computeSHA256(m Manifest, ops []*synclog.Operation) (string, error) {
	manifestBytes, err := sealedManifestBytes(m)
	if err != nil {
		return "", err
	}
	combined := append([]byte(nil), manifestBytes...)
	for _, op := range ops {
		opBytes, err := json.Marshal(op)
		if err != nil {
			return "", err
		}
		combined = append(combined, opBytes...)
	}
	return idcodec.HashHex(combined), nil
}
