package middleware

import (
	"context"
	"sync"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/node"
)

// DefaultMaxCallDepth bounds BehaviorCall recursion when no explicit limit
// is configured via NewBehaviorCall.
const DefaultMaxCallDepth = 32

type behaviorKey struct {
	tree     string
	behavior string
}

// BehaviorCall is spec §4.9's cross-tree subroutine channel: Register maps
// a (tree_name, behavior_name) pair to an invocable subtree; Call ticks
// that subtree once (looping RUNNING ticks is the caller's
// responsibility — a single Call performs one tick, matching how any other
// node ticks its children) against an overlay blackboard that is popped
// when the call returns, so the callee cannot leak writes back into the
// caller's own keys unless the caller explicitly copies them out.
// Recursion depth is tracked via core.TickContext.CallDepth and rejected
// past MaxDepth with CallDepthExceeded, preventing an unbounded tree cycle
// from overflowing the goroutine stack. Grounded on flow/graph.go's
// sub-agent invocation (a named node transferring control to another named
// node's graph) and core.TickContext.ChildCall's existing depth-increment
// convention.
type BehaviorCall struct {
	Base
	MaxDepth int

	mu        sync.RWMutex
	behaviors map[behaviorKey]node.Node
}

// NewBehaviorCall constructs an empty BehaviorCall middleware named name.
// maxDepth <= 0 selects DefaultMaxCallDepth.
func NewBehaviorCall(name string, maxDepth int) *BehaviorCall {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &BehaviorCall{Base: NewBase(name), MaxDepth: maxDepth, behaviors: make(map[behaviorKey]node.Node)}
}

// Start is a no-op.
func (b *BehaviorCall) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (b *BehaviorCall) Stop(ctx context.Context) error { return nil }

// Register installs subtree as (treeName, behaviorName)'s callable target,
// replacing any previous registration for that pair.
func (b *BehaviorCall) Register(treeName, behaviorName string, subtree node.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.behaviors[behaviorKey{treeName, behaviorName}] = subtree
}

// Deregister removes (treeName, behaviorName)'s registration, if any.
func (b *BehaviorCall) Deregister(treeName, behaviorName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.behaviors, behaviorKey{treeName, behaviorName})
}

// Call ticks (treeName, behaviorName)'s registered subtree once, under an
// overlay blackboard seeded from overlay (nil for none) and discarded when
// the call returns. It fails with UnknownNodeType if no subtree is
// registered for that pair, or CallDepthExceeded if tc's CallDepth has
// already reached MaxDepth.
func (b *BehaviorCall) Call(tc *core.TickContext, treeName, behaviorName string, overlay map[string]any) (core.Status, error) {
	if tc.CallDepth >= b.MaxDepth {
		return core.FAILURE, abterr.New(abterr.CallDepthExceeded, behaviorName, "behavior call recursion exceeded maximum depth")
	}

	b.mu.RLock()
	subtree, ok := b.behaviors[behaviorKey{treeName, behaviorName}]
	b.mu.RUnlock()
	if !ok {
		return core.FAILURE, abterr.New(abterr.UnknownNodeType, behaviorName, "no behavior registered under that tree and name")
	}

	callBB := core.NewBlackboard(tc.Bus)
	for k, v := range overlay {
		callBB.Set(k, v)
	}

	callTC := tc.ChildCall().WithBlackboard(callBB)
	status := subtree.Tick(callTC)
	return status, nil
}
