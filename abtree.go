// Package abtree is a thin façade gluing together the node, registry, tree,
// and forest packages for the common case: build a registry with every
// builtin node type available, construct one or more trees against it
// (programmatically or from XML), and optionally wire them into a Forest.
// Most applications interact with this package by:
//  1. Calling NewRegistry to get a Registry with every builtin node type
//     registered, then Register-ing any application-specific Action/
//     Condition factories under their own type names.
//  2. Building a tree.BehaviorTree via NewTree (LoadFromNode/LoadFromXML)
//     or a forest.Forest via NewForest (AddNode/AddMiddleware).
//  3. Ticking it: tree.Tick(ctx) for a single tree, forest.Tick(ctx) or
//     forest.Run(ctx, interval) for a forest.
//
// Using node/registry/tree/forest/middleware directly instead of this
// façade is equally supported; abtree exists only to save the four-import
// boilerplate common construction requires.
package abtree

import (
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/forest"
	"github.com/xiongwc/abtree/logging"
	"github.com/xiongwc/abtree/registry"
	"github.com/xiongwc/abtree/tree"
)

// NewRegistry constructs a Registry with every builtin composite,
// decorator, and parameter-driven leaf node type registered, ready for use
// by an XML loader or by tree.WithRegistry. bus, when non-nil, receives a
// "registry.replaced" event whenever a caller's later Register call
// overwrites one of these builtins.
func NewRegistry(bus *core.EventBus) *registry.Registry {
	reg := registry.New(bus)
	registry.RegisterBuiltins(reg)
	return reg
}

// NewTree constructs a BehaviorTree whose Registry (used by LoadFromXML)
// already has every builtin node type registered. Application-specific
// Action/Condition factories can still be added via t.Registry().Register.
func NewTree(optFns ...tree.Option) *tree.BehaviorTree {
	opts := append([]tree.Option{tree.WithRegistry(NewRegistry(nil))}, optFns...)
	return tree.New(opts...)
}

// NewForest constructs an empty Forest named name, logging through logger
// (nil selects a NoOpLogger).
func NewForest(name string, logger logging.Logger) *forest.Forest {
	return forest.New(name, nil, logger)
}
