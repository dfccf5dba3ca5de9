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
	"syncengine/internal/errors"
	"syncengine/internal/storage"
)

const importedBundlePrefix = "imported_bundles:"

// ImportTracker records which bundle_ids have already been imported so
// that importing the same bundle twice is a no-op, per §3's Bundle
// invariant. It is backed by the same storage engine the operation log
// uses, not the bundle's own scratch container.
type ImportTracker struct {
	engine storage.Engine
}

func NewImportTracker(engine storage.Engine) *ImportTracker {
	return &ImportTracker{engine: engine}
}

// AlreadyImported reports whether bundleID has been recorded before.
func (t *ImportTracker) AlreadyImported(bundleID string) bool {
	_, err := t.engine.Get(importedBundlePrefix + bundleID)
	return err == nil
}

// MarkImported records bundleID as imported. Safe to call more than
// once for the same id.
func (t *ImportTracker) MarkImported(bundleID string) error {
	if err := t.engine.Put(importedBundlePrefix+bundleID, []byte{1}); err != nil {
		return errors.NewDatabaseError("failed to record imported bundle").WithCause(err)
	}
	return nil
}
