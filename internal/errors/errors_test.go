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

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSyncErrorBasic(t *testing.T) {
	err := NewValidationError("unexpected value")

	if err.Code != ErrCodeValidation {
		t.Errorf("Expected code %d, got %d", ErrCodeValidation, err.Code)
	}
	if err.Category != CategoryValidation {
		t.Errorf("Expected category %s, got %s", CategoryValidation, err.Category)
	}
	if !strings.Contains(err.Error(), "unexpected value") {
		t.Errorf("Expected error message to contain 'unexpected value', got: %s", err.Error())
	}
}

func TestSyncErrorWithDetail(t *testing.T) {
	err := NewDatabaseError("apply failed").WithDetail("row locked")

	if err.Detail != "row locked" {
		t.Errorf("Expected detail 'row locked', got: %s", err.Detail)
	}
	if !strings.Contains(err.Error(), "row locked") {
		t.Errorf("Expected error to contain detail, got: %s", err.Error())
	}
}

func TestSyncErrorWithHint(t *testing.T) {
	err := NewSchemaError("missing migration").WithHint("apply ADD_COLUMN first")

	userMsg := err.UserMessage()
	if !strings.Contains(userMsg, "HINT:") {
		t.Errorf("Expected user message to contain HINT, got: %s", userMsg)
	}
	if !strings.Contains(userMsg, "apply ADD_COLUMN first") {
		t.Errorf("Expected hint in user message, got: %s", userMsg)
	}
}

func TestSyncErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewDatabaseError("write failed").WithCause(cause)

	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}
}

func TestSchemaErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *SyncError
		code     ErrorCode
		category Category
	}{
		{"SchemaIncompatible", SchemaIncompatible("todos", 3, 1), ErrCodeSchemaIncompatible, CategorySchema},
		{"UnknownTable", UnknownTable("widgets"), ErrCodeUnknownTable, CategorySchema},
		{"MigrationNotAdditive", MigrationNotAdditive("DROP_COLUMN"), ErrCodeMigrationNotAdditive, CategorySchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %d, got %d", tt.code, tt.err.Code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, tt.err.Category)
			}
		})
	}
}

func TestBundleErrorConstructors(t *testing.T) {
	err := BundleHashMismatch("bundle-1")
	if err.Code != ErrCodeBundleHashMismatch {
		t.Errorf("Expected code %d, got %d", ErrCodeBundleHashMismatch, err.Code)
	}
	if !strings.Contains(err.Detail, "bundle-1") {
		t.Errorf("Expected detail to reference bundle id, got: %s", err.Detail)
	}
}

func TestErrorCategoryChecks(t *testing.T) {
	validationErr := NewValidationError("test")
	schemaErr := NewSchemaError("test")
	transportErr := NewTransportError("test")

	if !IsValidationError(validationErr) {
		t.Error("Expected IsValidationError to return true for validation error")
	}
	if IsValidationError(schemaErr) {
		t.Error("Expected IsValidationError to return false for schema error")
	}
	if !IsSchemaError(schemaErr) {
		t.Error("Expected IsSchemaError to return true for schema error")
	}
	if !IsTransportError(transportErr) {
		t.Error("Expected IsTransportError to return true for transport error")
	}
	if !IsConflictPending(ConflictPending) {
		t.Error("Expected IsConflictPending to return true for the ConflictPending sentinel")
	}
}

func TestGetCode(t *testing.T) {
	err := UnknownTable("users")
	if GetCode(err) != ErrCodeUnknownTable {
		t.Errorf("Expected code %d, got %d", ErrCodeUnknownTable, GetCode(err))
	}

	regularErr := errors.New("regular error")
	if GetCode(regularErr) != 0 {
		t.Errorf("Expected code 0 for regular error, got %d", GetCode(regularErr))
	}
}

func TestFormatError(t *testing.T) {
	syncErr := NewValidationError("test error")
	formatted := FormatError(syncErr)
	if !strings.HasPrefix(formatted, "ERROR:") {
		t.Errorf("Expected formatted error to start with 'ERROR:', got: %s", formatted)
	}

	regularErr := errors.New("regular error")
	formatted = FormatError(regularErr)
	if !strings.Contains(formatted, "regular error") {
		t.Errorf("Expected formatted error to contain message, got: %s", formatted)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("bad input"), ExitUsage},
		{"schema", NewSchemaError("incompatible"), ExitSchemaIncompatible},
		{"transport", NewTransportError("down"), ExitTransportFailure},
		{"conflict pending", ConflictPending, ExitConflictsPending},
		{"database", NewDatabaseError("oops"), ExitOther},
		{"plain", errors.New("boom"), ExitOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
