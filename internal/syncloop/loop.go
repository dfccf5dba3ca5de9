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
Package syncloop drives one Transport on an interval, per §4.9: IDLE ->
SYNCING (tick or SyncNow) -> IDLE on success, WAITING_RETRY on a
transient error (scheduling a backed-off retry), ERROR on a permanent
one (a bundle, schema or validation error), STOPPED on Stop. There is
no separate auth-failure category: any other error, including one a
transport reports while connecting, counts as transient.
A singleflight.Group guarantees only one cycle runs at a time even if a
tick and an explicit SyncNow race.
*/
package syncloop

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"syncengine/internal/audit"
	"syncengine/internal/causality"
	"syncengine/internal/errors"
	"syncengine/internal/schema"
	"syncengine/internal/syncexec"
	"syncengine/internal/synclog"
	"syncengine/internal/syncorder"
)

// Config tunes a Loop's ticking and retry behavior.
type Config struct {
	Interval    time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int // 0 means unlimited retries before giving up and entering StateError
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
	return c
}

// Loop is one peer's sync state machine.
type Loop struct {
	peerID    string
	cfg       Config
	transport Transport
	log       *synclog.Store
	schema    *schema.Store
	executor  *syncexec.Executor
	peers     *PeerStore

	mu      sync.Mutex
	state   State
	attempt int
	lastErr error
	stopCh  chan struct{}
	sf      singleflight.Group
	audit   *audit.Manager
}

// SetAuditManager attaches an audit manager that records sync cycle,
// schema-incompatibility, and peer lifecycle events. Optional; without
// one, the loop simply doesn't emit audit events.
func (l *Loop) SetAuditManager(m *audit.Manager) {
	l.audit = m
}

func (l *Loop) logAudit(eventType audit.EventType, status audit.Status, errMsg string) {
	if l.audit == nil {
		return
	}
	l.audit.LogEvent(audit.Event{
		EventType:    eventType,
		DeviceID:     l.peerID,
		ObjectType:   "peer",
		ObjectName:   l.peerID,
		Status:       status,
		ErrorMessage: errMsg,
	})
}

func NewLoop(peerID string, transport Transport, log *synclog.Store, schemaStore *schema.Store, executor *syncexec.Executor, peers *PeerStore, cfg Config) *Loop {
	return &Loop{
		peerID:    peerID,
		cfg:       cfg.withDefaults(),
		transport: transport,
		log:       log,
		schema:    schemaStore,
		executor:  executor,
		peers:     peers,
		state:     StateIdle,
	}
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run ticks the loop on cfg.Interval until ctx is done or Stop is
// called. It blocks; callers typically run it in its own goroutine.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.stopCh = make(chan struct{})
	stopCh := l.stopCh
	l.mu.Unlock()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.setState(StateStopped)
			return
		case <-stopCh:
			l.setState(StateStopped)
			return
		case <-ticker.C:
			l.SyncNow(ctx)
		}
	}
}

// Stop transitions the loop to StateStopped and unblocks Run.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopCh != nil {
		select {
		case <-l.stopCh:
		default:
			close(l.stopCh)
		}
	}
	l.state = StateStopped
}

// SyncNow runs one cycle immediately, coalesced with any already in
// flight via the loop's singleflight group.
func (l *Loop) SyncNow(ctx context.Context) error {
	_, err, _ := l.sf.Do(l.peerID, func() (interface{}, error) {
		return nil, l.cycle(ctx)
	})
	return err
}

// cycle runs the four steps of §4.9: exchange clocks, pull what we
// lack, push what the peer lacks, apply the received batch.
func (l *Loop) cycle(ctx context.Context) error {
	l.setState(StateSyncing)
	l.logAudit(audit.EventTypeSyncStarted, audit.StatusSuccess, "")

	if err := l.transport.Connect(ctx); err != nil {
		return l.afterCycleError(err)
	}
	defer l.transport.Disconnect(ctx)

	peer, err := l.peers.Get(l.peerID)
	if err != nil {
		return l.afterCycleError(err)
	}

	localVC := l.log.LocalClock()
	peerVC, err := l.transport.ExchangeVectorClock(ctx, localVC)
	if err != nil {
		return l.afterCycleError(err)
	}

	received, err := l.transport.ReceiveOperations(ctx)
	if err != nil {
		return l.afterCycleError(err)
	}

	toSend := l.log.GetNewOperations(peerVC)
	toSend = syncorder.Order(toSend)
	if len(toSend) > 0 {
		if _, err := l.transport.SendOperations(ctx, toSend); err != nil {
			return l.afterCycleError(err)
		}
	}

	if len(received) > 0 {
		if err := l.checkSchemaCompatibility(received); err != nil {
			l.setState(StateError)
			l.recordError(err)
			l.logAudit(audit.EventTypeSchemaIncompatible, audit.StatusFailed, err.Error())
			return err
		}
		ordered := syncorder.Order(syncorder.Dedup(l.log, received))
		if _, err := l.executor.ApplyBundle(ctx, ordered); err != nil {
			return l.afterCycleError(err)
		}
	}

	now := nowMicros()
	peer.LastSeen = now
	peer.LastSyncAt = now
	peer.LastSentVectorClock = vcMap(localVC)
	peer.LastReceivedVectorClock = vcMap(peerVC)
	if err := l.peers.Put(peer); err != nil {
		return l.afterCycleError(err)
	}

	l.mu.Lock()
	l.attempt = 0
	l.lastErr = nil
	l.mu.Unlock()
	l.setState(StateIdle)
	l.logAudit(audit.EventTypeSyncSucceeded, audit.StatusSuccess, "")
	return nil
}

// checkSchemaCompatibility rejects the whole batch with a SchemaError
// if any SCHEMA_MIGRATION-gated table's incoming schema_version is
// ahead of what's locally known, per §4.8.
func (l *Loop) checkSchemaCompatibility(ops []*synclog.Operation) error {
	for _, op := range ops {
		if !l.schema.CheckCompatibility(op.TableName, op.SchemaVersion) {
			return errors.NewSchemaError("incoming bundle schema_version is ahead of local schema").
				WithDetail(op.TableName)
		}
	}
	return nil
}

// afterCycleError classifies err as permanent (ERROR) or transient
// (WAITING_RETRY, schedules a backed-off retry) per §4.9.
func (l *Loop) afterCycleError(err error) error {
	l.recordError(err)
	l.logAudit(audit.EventTypeSyncFailed, audit.StatusFailed, err.Error())

	if errors.IsSchemaError(err) || errors.IsValidationError(err) || errors.IsBundleError(err) {
		l.setState(StateError)
		l.logAudit(audit.EventTypePeerLost, audit.StatusFailed, err.Error())
		return err
	}

	l.mu.Lock()
	l.attempt++
	attempt := l.attempt
	maxAttempts := l.cfg.MaxAttempts
	l.mu.Unlock()

	if maxAttempts > 0 && attempt > maxAttempts {
		l.setState(StateError)
		l.logAudit(audit.EventTypePeerLost, audit.StatusFailed, err.Error())
		return err
	}

	l.setState(StateWaitingRetry)
	delay := backoffDelay(attempt, l.cfg.BaseBackoff, l.cfg.MaxBackoff)
	go l.scheduleRetry(delay)
	return err
}

func (l *Loop) scheduleRetry(delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	l.mu.Lock()
	stopCh := l.stopCh
	l.mu.Unlock()

	select {
	case <-timer.C:
		if l.State() == StateWaitingRetry {
			l.SyncNow(context.Background())
		}
	case <-stopCh:
	}
}

func (l *Loop) recordError(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

// LastError returns the error from the most recent failed cycle, if any.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func vcMap(vc *causality.VectorClock) map[string]uint64 {
	out := make(map[string]uint64, len(vc.Clocks))
	for d, c := range vc.Clocks {
		out[string(d)] = c
	}
	return out
}
