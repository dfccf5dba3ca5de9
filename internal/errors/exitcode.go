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
Package errors also maps the engine's error categories onto the reference
CLI's process exit codes, so the (out-of-scope) front-end can translate a
returned error into the contract documented for its surface:

	0 success
	2 usage
	3 schema-incompatible bundle
	4 transport failure
	5 unresolved conflicts block the operation
	1 other
*/
package errors

// Exit codes for the reference CLI surface.
const (
	ExitSuccess            = 0
	ExitOther              = 1
	ExitUsage              = 2
	ExitSchemaIncompatible = 3
	ExitTransportFailure   = 4
	ExitConflictsPending   = 5
)

// ExitCode maps an error to the CLI exit code it should produce. nil maps to
// ExitSuccess. Errors that are not *SyncError map to ExitOther.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if err == ConflictPending {
		return ExitConflictsPending
	}
	se, ok := err.(*SyncError)
	if !ok {
		return ExitOther
	}
	switch se.Category {
	case CategorySchema:
		return ExitSchemaIncompatible
	case CategoryTransport:
		return ExitTransportFailure
	case CategoryValidation:
		return ExitUsage
	default:
		return ExitOther
	}
}
