/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import "syncengine/internal/errors"

// Exit codes per the CLI surface: 0 success, 2 usage, 3
// schema-incompatible bundle, 4 transport failure, 5 unresolved
// conflicts block operation, 1 other.
const (
	exitSuccess             = 0
	exitOther               = 1
	exitUsage               = 2
	exitSchemaIncompatible  = 3
	exitTransportFailure    = 4
	exitConflictsUnresolved = 5
)

// exitCodeFor maps a command error to the exit code an operator's
// script should branch on. nil maps to exitSuccess.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.IsConflictPending(err):
		return exitConflictsUnresolved
	case errors.IsSchemaError(err):
		return exitSchemaIncompatible
	case errors.IsTransportError(err):
		return exitTransportFailure
	default:
		return exitOther
	}
}
