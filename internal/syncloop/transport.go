/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"context"

	"syncengine/internal/causality"
	"syncengine/internal/synclog"
)

// Transport is the §6 transport adapter contract: HTTP, WebSocket, and
// file-drop implementations all satisfy this from outside the engine;
// the loop only ever depends on the contract.
type Transport interface {
	// Connect establishes a session with the peer.
	Connect(ctx context.Context) error

	// Disconnect releases the session. Idempotent.
	Disconnect(ctx context.Context) error

	// ExchangeVectorClock is side-effect-free: it returns the peer's
	// current vector clock given ours.
	ExchangeVectorClock(ctx context.Context, local *causality.VectorClock) (*causality.VectorClock, error)

	// SendOperations delivers ops and returns how many the peer
	// accepted. Partial failures are all-or-nothing per call.
	SendOperations(ctx context.Context, ops []*synclog.Operation) (int, error)

	// ReceiveOperations returns ops the peer believes we lack. Never
	// includes an op whose device counter is at or below what we last
	// reported for that device.
	ReceiveOperations(ctx context.Context) ([]*synclog.Operation, error)
}
