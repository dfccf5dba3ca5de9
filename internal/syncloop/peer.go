/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package syncloop

import (
	"encoding/json"
	"time"

	"syncengine/internal/errors"
	"syncengine/internal/storage"
)

const peerPrefix = "sync_peers:"

// Peer is the persisted record of another device this engine syncs
// with, per spec.md §3.
type Peer struct {
	PeerID                  string            `json:"peer_id"`
	LastSeen                int64             `json:"last_seen,omitempty"`
	LastSyncAt              int64             `json:"last_sync_at,omitempty"`
	LastSentVectorClock     map[string]uint64 `json:"last_sent_vector_clock,omitempty"`
	LastReceivedVectorClock map[string]uint64 `json:"last_received_vector_clock,omitempty"`
	EndpointHint            string            `json:"endpoint_hint,omitempty"`
}

// PeerStore persists Peer records under sync_peers.
type PeerStore struct {
	engine storage.Engine
}

func NewPeerStore(engine storage.Engine) *PeerStore {
	return &PeerStore{engine: engine}
}

func (s *PeerStore) key(peerID string) string { return peerPrefix + peerID }

// Get returns the persisted Peer for peerID, or a fresh zero-value Peer
// if none has been recorded yet.
func (s *PeerStore) Get(peerID string) (*Peer, error) {
	raw, err := s.engine.Get(s.key(peerID))
	if err != nil {
		return &Peer{PeerID: peerID}, nil
	}
	var p Peer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.NewDatabaseError("corrupt peer record").WithCause(err)
	}
	return &p, nil
}

// Put persists p.
func (s *PeerStore) Put(p *Peer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.engine.Put(s.key(p.PeerID), data); err != nil {
		return errors.NewDatabaseError("failed to persist peer").WithCause(err)
	}
	return nil
}

// List returns every known peer.
func (s *PeerStore) List() ([]*Peer, error) {
	data, err := s.engine.Scan(peerPrefix)
	if err != nil {
		return nil, nil
	}
	out := make([]*Peer, 0, len(data))
	for _, raw := range data {
		var p Peer
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errors.NewDatabaseError("corrupt peer record").WithCause(err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func nowMicros() int64 { return time.Now().UnixMicro() }
