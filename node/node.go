package node

import (
	"sync"

	"github.com/xiongwc/abtree/core"
)

// Node is the interface every behavior-tree node implements. Tick advances
// the node by one step and returns its new Status; a RUNNING result means
// the caller must Tick it again (without re-ticking any sibling that has
// already completed) on the next round to make further progress. Reset
// clears any in-progress state (a RUNNING composite's running-child index,
// a decorator's retry counter) so the node starts fresh the next time it is
// ticked from an idle state.
type Node interface {
	Name() string
	Tick(tc *core.TickContext) core.Status
	Reset()
	// Status returns the status observed on the node's most recently
	// completed Tick call, or FAILURE if the node has never been ticked
	// (spec §3: "initial FAILURE, by convention 'not yet successful'").
	Status() core.Status
}

// Base is an embeddable struct providing the bookkeeping common to every
// node: its name, last-observed status, and a mutex guarding whatever
// decorator/composite state the embedding type adds. It does not itself
// implement Tick.
type Base struct {
	mu     sync.Mutex
	name   string
	status core.Status
}

// NewBase constructs a Base with the given name and the spec-mandated
// initial status of FAILURE.
func NewBase(name string) Base { return Base{name: name, status: core.FAILURE} }

// Name returns the node's name.
func (b *Base) Name() string { return b.name }

// Status returns the status observed on the most recently completed Tick.
func (b *Base) Status() core.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// RecordStatus updates the node's last-observed status, publishing a
// "node.status.changed" event on tc's bus when it differs from the
// previous one. Every concrete node's Tick method calls this immediately
// before returning, so status is always "last tick just completed" per
// spec §3's invariant. It returns status unchanged, so call sites can
// write `return b.RecordStatus(tc, core.SUCCESS)`.
func (b *Base) RecordStatus(tc *core.TickContext, status core.Status) core.Status {
	b.mu.Lock()
	old := b.status
	b.status = status
	b.mu.Unlock()

	if old != status && tc != nil && tc.Bus != nil {
		tc.Bus.Publish(core.NewEvent("node.status.changed", b.name, map[string]any{
			"path": b.name,
			"old":  old.String(),
			"new":  status.String(),
		}))
	}
	return status
}

// ResetStatus sets the node's last-observed status back to FAILURE without
// publishing a change event, matching spec §8's reset invariant ("after
// reset(), every node's running_child_index is 0 and status is FAILURE").
// Every concrete node's Reset method calls this alongside clearing its own
// decorator/composite state.
func (b *Base) ResetStatus() {
	b.mu.Lock()
	b.status = core.FAILURE
	b.mu.Unlock()
}

// Lock/Unlock expose the embedded mutex to embedding types that need to
// guard mutable tick state (running-child index, retry counters) against
// concurrent Tick calls — a BehaviorTree only ever ticks its root
// single-flight (see tree.BehaviorTree.Tick), but a node may also be ticked
// directly by a unit test from multiple goroutines, so composites and
// decorators still protect their own state.
func (b *Base) Lock()   { b.mu.Lock() }
func (b *Base) Unlock() { b.mu.Unlock() }

// Children is implemented by composite and decorator nodes so generic code
// (the XML loader, tree validation, introspection) can walk the tree
// without a type switch over every concrete node type.
type Children interface {
	Children() []Node
}
