/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

// State is a Loop's position in the §4.9 state machine.
type State string

const (
	StateIdle         State = "idle"
	StateSyncing      State = "syncing"
	StateWaitingRetry State = "waiting_retry"
	StateError        State = "error"
	StateStopped      State = "stopped"
)
