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

package idcodec

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the SHA-256 digest of b, used to content-address
// captured operations and to seal bundle manifests.
func ContentHash(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// HashHex returns ContentHash rendered as a lowercase hex string, the form
// stored in the bundle manifest's sha256 field.
func HashHex(b []byte) string {
	h := ContentHash(b)
	return hex.EncodeToString(h[:])
}
