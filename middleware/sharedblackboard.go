package middleware

import (
	"context"

	"github.com/xiongwc/abtree/core"
)

// SharedBlackboard is spec §4.3/§4.9's forest-wide blackboard: "same
// semantics as §4.3 but visible to all trees". It is a thin wrapper around
// a second core.Blackboard instance — writes are totally ordered because
// core.Blackboard already serializes every Set/Remove behind one mutex;
// nothing about being "shared" requires new locking, only a well-known
// place for every tree in a forest to find the same instance. Grounded on
// core.Blackboard itself (the spec explicitly reuses the per-tree type).
type SharedBlackboard struct {
	Base
	bb *core.Blackboard
}

// NewSharedBlackboard constructs a SharedBlackboard publishing its change
// events on bus (which may be the forest's own bus, distinct from any one
// tree's).
func NewSharedBlackboard(name string, bus *core.EventBus) *SharedBlackboard {
	return &SharedBlackboard{Base: NewBase(name), bb: core.NewBlackboard(bus)}
}

// Blackboard returns the forest-wide store.
func (s *SharedBlackboard) Blackboard() *core.Blackboard { return s.bb }

// Start is a no-op.
func (s *SharedBlackboard) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (s *SharedBlackboard) Stop(ctx context.Context) error { return nil }
