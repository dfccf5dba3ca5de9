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
Package resolver turns a recorded conflict into a chosen winning set of
values, or an explicit deferral. Resolver is modeled as a tagged union
(Kind enum plus embedded fields) rather than a closed set of types, the
same style internal/cluster's MembershipManager uses for its dynamic
dispatch points (onNodeJoin/onNodeLeave callback fields): one struct
shape, dispatched on tag, so built-ins and a caller-supplied Custom
function share one Resolver type without an interface-per-strategy
explosion.
*/
package resolver

import (
	"syncengine/internal/errors"
	"syncengine/internal/idcodec"
	"syncengine/internal/syncapply"
	"syncengine/internal/synclog"
)

// Kind tags which built-in strategy a Resolver runs.
type Kind string

const (
	KindLastWriteWins Kind = "last_write_wins"
	KindFieldMerge    Kind = "field_merge"
	KindManual        Kind = "manual"
	KindCustom        Kind = "custom"
)

// Result is what a resolver decides: either a set of values to commit
// (Resolved=true, optionally Delete=true for a tombstone outcome), or a
// deferral back to an operator (Resolved=false).
type Result struct {
	Resolved bool
	Delete   bool
	Values   map[string]idcodec.Value
}

// Resolver is the tagged union of built-in and custom conflict
// strategies. Only the fields relevant to Kind are consulted.
type Resolver struct {
	Kind Kind

	// FieldMerge
	PreferLocal bool

	// Custom
	Fn func(ctx *syncapply.ConflictContext) (Result, error)
}

// LastWriteWins returns a Resolver choosing whichever op has the
// greater (physical_ms, device_id) pair.
func LastWriteWins() Resolver { return Resolver{Kind: KindLastWriteWins} }

// FieldMerge returns a Resolver that merges column-by-column, each
// column taken from whichever op wrote it more recently; preferLocal
// breaks timestamp ties in favor of the local op.
func FieldMerge(preferLocal bool) Resolver {
	return Resolver{Kind: KindFieldMerge, PreferLocal: preferLocal}
}

// Manual returns a Resolver that always defers to an operator.
func Manual() Resolver { return Resolver{Kind: KindManual} }

// Custom returns a Resolver delegating to fn.
func Custom(fn func(ctx *syncapply.ConflictContext) (Result, error)) Resolver {
	return Resolver{Kind: KindCustom, Fn: fn}
}

// Resolve dispatches to the strategy named by r.Kind.
func (r Resolver) Resolve(ctx *syncapply.ConflictContext) (Result, error) {
	switch r.Kind {
	case KindLastWriteWins:
		return resolveLastWriteWins(ctx), nil
	case KindFieldMerge:
		return resolveFieldMerge(ctx, r.PreferLocal), nil
	case KindManual:
		return Result{Resolved: false}, nil
	case KindCustom:
		if r.Fn == nil {
			return Result{}, errors.NewValidationError("custom resolver has no function")
		}
		return r.Fn(ctx)
	default:
		return Result{}, errors.NewValidationError("unknown resolver kind").WithDetail(string(r.Kind))
	}
}

// pickLatest returns whichever op has the greater (physical_ms,
// device_id) pair, per §4.6's Last-Write-Wins rule. Either side may be
// nil if the referenced operation is no longer in the log.
func pickLatest(ctx *syncapply.ConflictContext) *synclog.Operation {
	local, remote := ctx.LocalOp, ctx.RemoteOp
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	if local.CreatedAt != remote.CreatedAt {
		if local.CreatedAt > remote.CreatedAt {
			return local
		}
		return remote
	}
	if local.DeviceID > remote.DeviceID {
		return local
	}
	return remote
}

func resolveLastWriteWins(ctx *syncapply.ConflictContext) Result {
	winner := pickLatest(ctx)
	if winner == nil {
		return Result{Resolved: false}
	}
	if winner == ctx.RemoteOp {
		return Result{Resolved: true, Delete: winner.OpType == synclog.OpDelete, Values: ctx.RemoteValues}
	}
	return Result{Resolved: true, Delete: winner.OpType == synclog.OpDelete, Values: ctx.LocalValues}
}

// resolveFieldMerge merges column-by-column: each column comes from
// whichever op wrote it more recently. Neither op's NewValues carries a
// per-column timestamp, so per-column freshness is approximated by the
// owning op's CreatedAt; preferLocal breaks a tie between two ops
// sharing the same CreatedAt.
func resolveFieldMerge(ctx *syncapply.ConflictContext, preferLocal bool) Result {
	local, remote := ctx.LocalOp, ctx.RemoteOp
	merged := make(map[string]idcodec.Value)
	for k, v := range ctx.RemoteValues {
		merged[k] = v
	}
	localWins := preferLocal
	if local != nil && remote != nil && local.CreatedAt != remote.CreatedAt {
		localWins = local.CreatedAt > remote.CreatedAt
	}
	if localWins {
		for k, v := range ctx.LocalValues {
			merged[k] = v
		}
	} else {
		// remote columns already seeded merged; still fill any column
		// only the local side knows about.
		for k, v := range ctx.LocalValues {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	deleted := false
	if local != nil && remote != nil {
		deleted = local.OpType == synclog.OpDelete && remote.OpType == synclog.OpDelete
	}
	return Result{Resolved: true, Delete: deleted, Values: merged}
}
