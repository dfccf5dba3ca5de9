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
Package idcodec provides the engine's identifier scheme and the
deterministic value codec used to serialize captured row values for
hashing and on-the-wire transmission.

Operation and bundle identifiers are allocated with fogfish/guid/v2, a
k-ordered identifier generator: IDs allocated on the same device sort in
roughly the order they were allocated without requiring coordination with
any other device, which is exactly the property the sync log's
op_id/parent_op_id chain and the bundle_id need.
*/
package idcodec

import (
	"strings"

	"github.com/fogfish/guid/v2"
)

// ID is a k-ordered, globally unique identifier rendered in the
// generator's own lexicographically-sortable textual form. Comparing two
// IDs as strings preserves allocation order for IDs minted by the same
// device and gives a deterministic, if arbitrary, ordering for IDs
// minted concurrently by different devices.
type ID string

// NewID allocates a new k-ordered identifier.
func NewID() ID {
	return ID(guid.New(guid.Clock).String())
}

// String returns the textual form of the identifier.
func (id ID) String() string { return string(id) }

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool { return id < other }

// Empty reports whether id is the zero value.
func (id ID) Empty() bool { return id == "" }

// Compare returns -1, 0, or 1 following the usual comparator convention.
func Compare(a, b ID) int {
	return strings.Compare(string(a), string(b))
}
