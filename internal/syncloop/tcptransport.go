/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"context"
	"fmt"
	"net"
	"time"

	"syncengine/internal/causality"
	"syncengine/internal/errors"
	"syncengine/internal/logging"
	"syncengine/internal/protocol"
	"syncengine/internal/synclog"
)

// TCPTransport is a Transport backed by a single long-lived TCP
// connection to one peer, speaking the internal/protocol framing.
// Each cycle is a strict request/response sequence -- exchange clocks,
// pull, push -- so no stream multiplexing is needed.
type TCPTransport struct {
	deviceID string
	addr     string
	dialer   net.Dialer
	logger   *logging.Logger

	conn net.Conn
}

var _ Transport = (*TCPTransport)(nil)

// NewTCPTransport returns a TCPTransport that dials addr on Connect.
func NewTCPTransport(deviceID, addr string) *TCPTransport {
	return &TCPTransport{
		deviceID: deviceID,
		addr:     addr,
		logger:   logging.NewLogger("tcp-transport"),
	}
}

// Connect dials the peer, if not already connected.
func (t *TCPTransport) Connect(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return errors.NewTransportError("failed to dial peer").WithDetail(t.addr).WithCause(err)
	}
	t.conn = conn
	t.logger.Debug("connected to peer", "addr", t.addr)
	return nil
}

// Disconnect closes the connection. Idempotent.
func (t *TCPTransport) Disconnect(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCPTransport) applyDeadline(ctx context.Context) {
	if t.conn == nil {
		return
	}
	if dl, ok := ctx.Deadline(); ok {
		t.conn.SetDeadline(dl)
	} else {
		t.conn.SetDeadline(time.Now().Add(30 * time.Second))
	}
}

// ExchangeVectorClock sends our vector clock as a MsgClockExchange and
// reads back the peer's as a MsgClockResult.
func (t *TCPTransport) ExchangeVectorClock(ctx context.Context, local *causality.VectorClock) (*causality.VectorClock, error) {
	if t.conn == nil {
		return nil, errors.NewTransportError("not connected")
	}
	t.applyDeadline(ctx)

	payload, err := protocol.NewClockExchangeMessage(t.deviceID, local).Encode()
	if err != nil {
		return nil, errors.NewTransportError("failed to encode clock exchange").WithCause(err)
	}
	if err := protocol.WriteMessage(t.conn, protocol.MsgClockExchange, payload); err != nil {
		return nil, errors.NewTransportError("failed to send clock exchange").WithCause(err)
	}

	msg, err := protocol.ReadMessage(t.conn)
	if err != nil {
		return nil, errors.NewTransportError("failed to read clock result").WithCause(err)
	}
	if err := checkErrorMessage(msg); err != nil {
		return nil, err
	}
	if msg.Header.Type != protocol.MsgClockResult {
		return nil, errors.NewTransportError("unexpected message type for clock result")
	}

	reply, err := protocol.DecodeClockExchangeMessage(msg.Payload)
	if err != nil {
		return nil, errors.NewTransportError("failed to decode clock result").WithCause(err)
	}
	return reply.VectorClock(), nil
}

// SendOperations pushes ops as a MsgOpsPush and returns how many the
// peer accepted, read back from a MsgOpsAck.
func (t *TCPTransport) SendOperations(ctx context.Context, ops []*synclog.Operation) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransportError("not connected")
	}
	t.applyDeadline(ctx)

	payload, err := protocol.OpsMessage{Operations: ops}.Encode()
	if err != nil {
		return 0, errors.NewTransportError("failed to encode ops push").WithCause(err)
	}
	if err := protocol.WriteMessage(t.conn, protocol.MsgOpsPush, payload); err != nil {
		return 0, errors.NewTransportError("failed to send ops push").WithCause(err)
	}

	msg, err := protocol.ReadMessage(t.conn)
	if err != nil {
		return 0, errors.NewTransportError("failed to read ops ack").WithCause(err)
	}
	if err := checkErrorMessage(msg); err != nil {
		return 0, err
	}
	if msg.Header.Type != protocol.MsgOpsAck {
		return 0, errors.NewTransportError("unexpected message type for ops ack")
	}

	ack, err := protocol.DecodeAckMessage(msg.Payload)
	if err != nil {
		return 0, errors.NewTransportError("failed to decode ops ack").WithCause(err)
	}
	if ack.Error != "" {
		return ack.Accepted, errors.NewTransportError(ack.Error)
	}
	return ack.Accepted, nil
}

// ReceiveOperations requests the peer's pending operations with a
// MsgOpsPull and reads the resulting MsgOpsBatch.
func (t *TCPTransport) ReceiveOperations(ctx context.Context) ([]*synclog.Operation, error) {
	if t.conn == nil {
		return nil, errors.NewTransportError("not connected")
	}
	t.applyDeadline(ctx)

	if err := protocol.WriteMessage(t.conn, protocol.MsgOpsPull, nil); err != nil {
		return nil, errors.NewTransportError("failed to send ops pull").WithCause(err)
	}

	msg, err := protocol.ReadMessage(t.conn)
	if err != nil {
		return nil, errors.NewTransportError("failed to read ops batch").WithCause(err)
	}
	if err := checkErrorMessage(msg); err != nil {
		return nil, err
	}
	if msg.Header.Type != protocol.MsgOpsBatch {
		return nil, errors.NewTransportError("unexpected message type for ops batch")
	}

	batch, err := protocol.DecodeOpsMessage(msg.Payload)
	if err != nil {
		return nil, errors.NewTransportError("failed to decode ops batch").WithCause(err)
	}
	return batch.Operations, nil
}

func checkErrorMessage(msg *protocol.Message) error {
	if msg.Header.Type != protocol.MsgError {
		return nil
	}
	errMsg, err := protocol.DecodeErrorMessage(msg.Payload)
	if err != nil {
		return errors.NewTransportError("peer reported an error with an undecodable payload")
	}
	return errors.NewTransportError(fmt.Sprintf("peer error [%s]: %s", errMsg.Code, errMsg.Message))
}
