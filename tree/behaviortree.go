// Package tree defines BehaviorTree, the owner of a root node, a
// Blackboard, and an EventBus, and the entry point for ticking a tree.
// Grounded on engine.Engine's functional-options constructor and
// runner.Runner's single-invocation-in-flight bookkeeping, narrowed here to
// "one tree has exactly one root, so at most one Tick may be in flight".
package tree

import (
	"context"
	"sync"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/logging"
	"github.com/xiongwc/abtree/node"
	"github.com/xiongwc/abtree/registry"
	"github.com/xiongwc/abtree/xmlloader"
)

// Config holds the plain tunables for a BehaviorTree.
type Config struct {
	// Name identifies the tree for logging and forest membership.
	Name string
}

// DefaultConfig returns a baseline Config.
func DefaultConfig() *Config {
	return &Config{Name: "tree"}
}

// Options bundles Config with the pluggable services a BehaviorTree can be
// constructed with, following engine.Options's functional-options pattern.
type Options struct {
	Config     *Config
	Blackboard *core.Blackboard
	Bus        *core.EventBus
	Logger     logging.Logger
	Registry   *registry.Registry
}

// Option configures a BehaviorTree at construction time.
type Option func(*Options)

// WithName sets the tree's name.
func WithName(name string) Option {
	return func(o *Options) { o.Config.Name = name }
}

// WithBlackboard overrides the default Blackboard.
func WithBlackboard(bb *core.Blackboard) Option {
	return func(o *Options) { o.Blackboard = bb }
}

// WithBus overrides the default EventBus.
func WithBus(bus *core.EventBus) Option {
	return func(o *Options) { o.Bus = bus }
}

// WithLogger overrides the default NoOpLogger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithRegistry overrides the default empty Registry (used by LoadFromXML).
func WithRegistry(reg *registry.Registry) Option {
	return func(o *Options) { o.Registry = reg }
}

// BehaviorTree owns a root node plus the Blackboard and EventBus it ticks
// against. At most one Tick call is ever in flight per tree: a concurrent
// caller blocks until the current tick finishes, mirroring a single
// invocation owning one tree's execution.
type BehaviorTree struct {
	name       string
	root       node.Node
	blackboard *core.Blackboard
	bus        *core.EventBus
	logger     logging.Logger
	registry   *registry.Registry

	mu    sync.Mutex
	round int
}

func newOptions(optFns ...Option) *Options {
	bus := core.NewEventBus()
	opts := &Options{
		Config:     DefaultConfig(),
		Bus:        bus,
		Blackboard: core.NewBlackboard(bus),
		Logger:     logging.NoOpLogger{},
		Registry:   registry.New(bus),
	}
	for _, fn := range optFns {
		fn(opts)
	}
	return opts
}

// New constructs an empty BehaviorTree with no root; call LoadFromNode or
// LoadFromXML before Ticking it.
func New(optFns ...Option) *BehaviorTree {
	opts := newOptions(optFns...)
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &BehaviorTree{
		name:       opts.Config.Name,
		blackboard: opts.Blackboard,
		bus:        opts.Bus,
		logger:     logger,
		registry:   opts.Registry,
	}
}

// NewFromNode is sugar over New followed by LoadFromNode, matching the
// "direct construction as sugar" option spec.md leaves open. A nil root, like
// any structural problem with root, is reported as an InvalidTree error from
// LoadFromNode's validation.
func NewFromNode(root node.Node, optFns ...Option) (*BehaviorTree, error) {
	t := New(optFns...)
	if err := t.LoadFromNode(root); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the tree's configured name.
func (t *BehaviorTree) Name() string { return t.name }

// Blackboard returns the tree's shared Blackboard.
func (t *BehaviorTree) Blackboard() *core.Blackboard { return t.blackboard }

// Bus returns the tree's EventBus.
func (t *BehaviorTree) Bus() *core.EventBus { return t.bus }

// Registry returns the tree's node Registry, used by LoadFromXML.
func (t *BehaviorTree) Registry() *registry.Registry { return t.registry }

// LoadFromNode installs root as the tree's root after validating it.
func (t *BehaviorTree) LoadFromNode(root node.Node) error {
	if root == nil {
		return abterr.New(abterr.InvalidTree, t.name, "root must not be nil")
	}
	if err := Validate(root); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = root
	t.round = 0
	return nil
}

// LoadFromXML parses doc as a <BehaviorTree> document using the tree's
// Registry and installs the resulting root, delegating to xmlloader (§4.7).
// If doc's <BehaviorTree> element carries a "name" attribute, it overrides
// the tree's configured name.
func (t *BehaviorTree) LoadFromXML(doc string) error {
	root, name, err := xmlloader.Load(doc, t.registry)
	if err != nil {
		return err
	}
	if err := t.LoadFromNode(root); err != nil {
		return err
	}
	if name != "" {
		t.mu.Lock()
		t.name = name
		t.mu.Unlock()
	}
	return nil
}

// Tick advances the tree by one round. At most one Tick call executes at a
// time per tree; a concurrent call blocks until the in-progress one
// returns.
func (t *BehaviorTree) Tick(ctx context.Context) (core.Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		return core.FAILURE, abterr.New(abterr.InvalidTree, t.name, "tree has no root; call LoadFromNode or LoadFromXML first")
	}
	t.round++
	tc := core.NewTickContext(ctx, t.blackboard, t.bus, t.name, t.round, t.logger)
	t.bus.Publish(core.NewEvent("tree.tick.start", t.name, map[string]any{"tree_name": t.name, "round": t.round}))
	status := t.root.Tick(tc)
	t.bus.Publish(core.NewEvent("tree.tick.end", t.name, map[string]any{"tree_name": t.name, "round": t.round, "status": status.String()}))
	t.logger.Debug("tree.tick", "tree", t.name, "round", t.round, "status", status.String())
	return status, nil
}

// Reset resets the root node's in-progress state (running-child indices,
// retry counters, wait deadlines) without clearing the blackboard.
func (t *BehaviorTree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root != nil {
		t.root.Reset()
	}
	t.round = 0
}

// Root returns the tree's root node, or nil if none has been loaded.
func (t *BehaviorTree) Root() node.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}
