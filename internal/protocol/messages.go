/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package protocol

import (
	"encoding/json"

	"syncengine/internal/causality"
	"syncengine/internal/synclog"
)

// ClockExchangeMessage carries the sender's vector clock, the payload
// of a MsgClockExchange message.
type ClockExchangeMessage struct {
	DeviceID string            `json:"device_id"`
	Clocks   map[string]uint64 `json:"clocks"`
}

// Encode marshals the message to its wire payload.
func (m ClockExchangeMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeClockExchangeMessage unmarshals a MsgClockExchange payload.
func DecodeClockExchangeMessage(payload []byte) (ClockExchangeMessage, error) {
	var m ClockExchangeMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}

// VectorClock reconstructs a *causality.VectorClock from the message.
func (m ClockExchangeMessage) VectorClock() *causality.VectorClock {
	vc := causality.NewVectorClock()
	for d, c := range m.Clocks {
		vc.Observe(causality.DeviceID(d), c)
	}
	return vc
}

// NewClockExchangeMessage builds a ClockExchangeMessage from a local
// vector clock.
func NewClockExchangeMessage(deviceID string, vc *causality.VectorClock) ClockExchangeMessage {
	out := make(map[string]uint64, len(vc.Clocks))
	for d, c := range vc.Clocks {
		out[string(d)] = c
	}
	return ClockExchangeMessage{DeviceID: deviceID, Clocks: out}
}

// OpsMessage carries a batch of operations, the payload of both
// MsgOpsPush and MsgOpsBatch messages.
type OpsMessage struct {
	Operations []*synclog.Operation `json:"operations"`
}

// Encode marshals the message to its wire payload.
func (m OpsMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeOpsMessage unmarshals a MsgOpsPush or MsgOpsBatch payload.
func DecodeOpsMessage(payload []byte) (OpsMessage, error) {
	var m OpsMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}

// AckMessage reports how many operations a peer accepted, the payload
// of a MsgOpsAck message.
type AckMessage struct {
	Accepted int    `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// Encode marshals the message to its wire payload.
func (m AckMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeAckMessage unmarshals a MsgOpsAck payload.
func DecodeAckMessage(payload []byte) (AckMessage, error) {
	var m AckMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}

// ErrorMessage carries an error response, the payload of a MsgError
// message.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals the message to its wire payload.
func (m ErrorMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeErrorMessage unmarshals a MsgError payload.
func DecodeErrorMessage(payload []byte) (ErrorMessage, error) {
	var m ErrorMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}
