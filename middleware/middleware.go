// Package middleware implements spec §4.9's typed inter-tree communication
// primitives attached to a forest.Forest: PubSub, ReqResp, SharedBlackboard,
// StateWatch, TaskBoard, and BehaviorCall. Re-expressed, per spec §9, as a
// closed set of statically typed channels rather than one ad-hoc class per
// concern — each has its own concrete type and operations. forest.Forest
// holds them as an ordered list of Middleware values (removable by name) and
// offers no lookup of a channel by name or variant: code that uses a channel
// keeps its own typed reference to it.
// Grounded structurally on engine.Callback's Type()+Execute(ctx, *Context)
// lifecycle shape, generalized to tick-scoped hooks instead of one-shot
// execution.
package middleware

import (
	"context"

	"github.com/xiongwc/abtree/core"
)

// Middleware is the lifecycle every channel variant implements. Start/Stop
// bracket the forest's own Start/Stop; BeforeTick/AfterTick bracket every
// Forest.tick() round.
type Middleware interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	BeforeTick(round int)
	AfterTick(round int, results map[string]core.Status)
}

// Base is an embeddable no-op implementation of the tick hooks, so a
// middleware that only cares about Start/Stop (or only about messaging, not
// lifecycle) doesn't have to restate empty bodies.
type Base struct {
	name string
}

// NewBase constructs a Base with the given name.
func NewBase(name string) Base { return Base{name: name} }

// Name returns the middleware's name.
func (b *Base) Name() string { return b.name }

// BeforeTick is a no-op by default.
func (b *Base) BeforeTick(round int) {}

// AfterTick is a no-op by default.
func (b *Base) AfterTick(round int, results map[string]core.Status) {}
