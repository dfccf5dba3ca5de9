/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"context"
	"net"
	"time"

	"syncengine/internal/causality"
	"syncengine/internal/logging"
	"syncengine/internal/protocol"
	"syncengine/internal/schema"
	"syncengine/internal/syncexec"
	"syncengine/internal/synclog"
	"syncengine/internal/syncorder"
)

// TCPServer accepts connections from peers and serves the listening
// half of one sync cycle: receive the caller's vector clock, reply
// with ours, accept whatever ops they push, and hand back whatever
// ops they're missing. One goroutine per connection, one cycle per
// connection -- the caller reconnects for its next cycle.
type TCPServer struct {
	deviceID string
	log      *synclog.Store
	schema   *schema.Store
	executor *syncexec.Executor
	logger   *logging.Logger

	listener net.Listener
}

// NewTCPServer returns a server that will accept connections on addr
// once Serve is called.
func NewTCPServer(deviceID string, log *synclog.Store, schemaStore *schema.Store, executor *syncexec.Executor) *TCPServer {
	return &TCPServer{
		deviceID: deviceID,
		log:      log,
		schema:   schemaStore,
		executor: executor,
		logger:   logging.NewLogger("tcp-server"),
	}
}

// Listen binds addr. Callers that need to know the bound address (an
// ephemeral port, say) before accepting connections call Listen, then
// Serve; Serve alone does both for the common case.
func (s *TCPServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve accepts and handles connections until ctx is cancelled,
// binding addr first if Listen hasn't already been called. It blocks;
// callers typically run it in its own goroutine.
func (s *TCPServer) Serve(ctx context.Context, addr string) error {
	if s.listener == nil {
		if err := s.Listen(addr); err != nil {
			return err
		}
	}
	ln := s.listener

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Warn("accept failed", "error", err)
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Addr returns the address the server is listening on, once Serve has
// started.
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	peerVC := causality.NewVectorClock()

	for {
		msg, err := protocol.ReadMessage(conn)
		if err != nil {
			return
		}

		switch msg.Header.Type {
		case protocol.MsgClockExchange:
			s.handleClockExchange(conn, msg, peerVC)
		case protocol.MsgOpsPush:
			s.handleOpsPush(ctx, conn, msg)
		case protocol.MsgOpsPull:
			s.handleOpsPull(conn, peerVC)
		case protocol.MsgPing:
			protocol.WriteMessage(conn, protocol.MsgPong, nil)
		default:
			s.replyError(conn, "UNEXPECTED_MESSAGE", "unexpected message type for this connection state")
			return
		}
	}
}

// handleClockExchange decodes the caller's vector clock into peerVC
// (shared with the rest of this connection's handlers, since
// MsgOpsPull needs to know what the caller already has) and replies
// with our own.
func (s *TCPServer) handleClockExchange(conn net.Conn, msg *protocol.Message, peerVC *causality.VectorClock) {
	req, err := protocol.DecodeClockExchangeMessage(msg.Payload)
	if err != nil {
		s.replyError(conn, "BAD_PAYLOAD", "could not decode clock exchange message")
		return
	}
	for d, c := range req.Clocks {
		peerVC.Observe(causality.DeviceID(d), c)
	}

	reply := protocol.NewClockExchangeMessage(s.deviceID, s.log.LocalClock())
	payload, err := reply.Encode()
	if err != nil {
		s.replyError(conn, "ENCODE_FAILED", "could not encode clock result")
		return
	}
	protocol.WriteMessage(conn, protocol.MsgClockResult, payload)
}

func (s *TCPServer) handleOpsPush(ctx context.Context, conn net.Conn, msg *protocol.Message) {
	batch, err := protocol.DecodeOpsMessage(msg.Payload)
	if err != nil {
		s.replyError(conn, "BAD_PAYLOAD", "could not decode ops push message")
		return
	}

	for _, op := range batch.Operations {
		if !s.schema.CheckCompatibility(op.TableName, op.SchemaVersion) {
			ack := protocol.AckMessage{Accepted: 0, Error: "incoming bundle schema_version is ahead of local schema"}
			payload, _ := ack.Encode()
			protocol.WriteMessage(conn, protocol.MsgOpsAck, payload)
			return
		}
	}

	ordered := syncorder.Order(syncorder.Dedup(s.log, batch.Operations))
	result, err := s.executor.ApplyBundle(ctx, ordered)
	if err != nil {
		ack := protocol.AckMessage{Accepted: 0, Error: err.Error()}
		payload, _ := ack.Encode()
		protocol.WriteMessage(conn, protocol.MsgOpsAck, payload)
		return
	}

	ack := protocol.AckMessage{Accepted: result.Applied}
	payload, err := ack.Encode()
	if err != nil {
		s.replyError(conn, "ENCODE_FAILED", "could not encode ops ack")
		return
	}
	protocol.WriteMessage(conn, protocol.MsgOpsAck, payload)
}

func (s *TCPServer) handleOpsPull(conn net.Conn, peerVC *causality.VectorClock) {
	ops := syncorder.Order(s.log.GetNewOperations(peerVC))
	batch := protocol.OpsMessage{Operations: ops}
	payload, err := batch.Encode()
	if err != nil {
		s.replyError(conn, "ENCODE_FAILED", "could not encode ops batch")
		return
	}
	protocol.WriteMessage(conn, protocol.MsgOpsBatch, payload)
}

func (s *TCPServer) replyError(conn net.Conn, code, message string) {
	errMsg := protocol.ErrorMessage{Code: code, Message: message}
	payload, err := errMsg.Encode()
	if err != nil {
		return
	}
	protocol.WriteMessage(conn, protocol.MsgError, payload)
}
