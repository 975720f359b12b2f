package core

import (
	"context"

	"github.com/xiongwc/abtree/logging"
)

// TickContext is the ambient object threaded through a single Tick call,
// bundling the standard context.Context used for cancellation together
// with the shared Blackboard and EventBus and a handful of identifiers
// useful for logging and for BehaviorCall depth tracking. It is the
// behavior-tree analogue of a per-invocation request context: built once at
// the root of a tick and passed down unchanged (or, for BehaviorCall, with
// an overlaid Blackboard) to every descendant node.
type TickContext struct {
	context.Context

	Blackboard *Blackboard
	Bus        *EventBus
	Logger     logging.Logger

	// TreeName identifies the owning BehaviorTree, for logging.
	TreeName string
	// Round is the tick counter value for this call.
	Round int
	// CallDepth counts BehaviorCall nesting; a plain tick starts at 0.
	CallDepth int
}

// NewTickContext constructs a root TickContext. logger may be nil, in which
// case a NoOpLogger is substituted.
func NewTickContext(ctx context.Context, bb *Blackboard, bus *EventBus, treeName string, round int, logger logging.Logger) *TickContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &TickContext{
		Context:    ctx,
		Blackboard: bb,
		Bus:        bus,
		Logger:     logger,
		TreeName:   treeName,
		Round:      round,
	}
}

// WithBlackboard returns a shallow copy of tc with bb substituted, used by
// middleware.BehaviorCall to overlay a call-scoped blackboard without
// disturbing the caller's TickContext.
func (tc *TickContext) WithBlackboard(bb *Blackboard) *TickContext {
	clone := *tc
	clone.Blackboard = bb
	return &clone
}

// ChildCall returns a shallow copy of tc with CallDepth incremented by one,
// for entering a nested BehaviorCall.
func (tc *TickContext) ChildCall() *TickContext {
	clone := *tc
	clone.CallDepth = tc.CallDepth + 1
	return &clone
}

// EmitError publishes a "node.error" event carrying err, the convention
// every leaf node follows instead of returning err from Tick (see
// abterr.HandlerError and node.Action).
func (tc *TickContext) EmitError(source string, err error) {
	if tc.Bus == nil {
		return
	}
	tc.Bus.Publish(NewEvent("node.error", source, map[string]any{"error": err.Error()}))
}
