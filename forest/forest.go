// Package forest implements spec §4.8's multi-tree runtime: a Forest holds
// a named set of ForestNodes (each wrapping one *tree.BehaviorTree) plus an
// ordered list of Middleware, and ticks every node once per round,
// partitioning nodes into dependency layers and running each layer
// concurrently. Grounded on original_source/abtree/forest/core.py's
// BehaviorForest/ForestNode split and engine.Engine's IDLE/RUNNING run-state
// discipline, reworked here into a three-state machine (IDLE, RUNNING,
// STOPPED) matching spec §4.8's explicit lifecycle.
package forest

import (
	"context"
	"sync"
	"time"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/logging"
	"github.com/xiongwc/abtree/middleware"
	"github.com/xiongwc/abtree/tree"
)

// NodeType classifies a ForestNode's role, carried through for
// capability-routed middleware (TaskBoard) and introspection; the engine
// itself does not special-case any value.
type NodeType int

const (
	// Worker performs domain-specific ticking; the default role.
	Worker NodeType = iota
	// Master coordinates other nodes.
	Master
	// Monitor observes other nodes. Like every other role, it is still
	// offered TaskBoard tasks that match its capabilities.
	Monitor
	// Coordinator distributes work across Worker nodes.
	Coordinator
)

// String renders the node type's name.
func (t NodeType) String() string {
	switch t {
	case Master:
		return "MASTER"
	case Monitor:
		return "MONITOR"
	case Coordinator:
		return "COORDINATOR"
	default:
		return "WORKER"
	}
}

// ForestNode is one tree's membership record within a Forest: its name
// (unique within the forest), the tree it wraps, its declared role,
// capability set (consulted by middleware.TaskBoard), and the names of
// other forest nodes it depends on (consulted by Forest.Tick's layering).
type ForestNode struct {
	Name         string
	Tree         *tree.BehaviorTree
	Type         NodeType
	Capabilities map[string]bool
	Dependencies []string
}

// RunState is Forest's lifecycle state.
type RunState int

const (
	// Idle is the initial state, and the state kept after a failed Start.
	Idle RunState = iota
	// Running is the state between a successful Start and Stop.
	Running
	// Stopped is the terminal state after Stop has completed once.
	Stopped
)

// String renders the run state's name.
func (s RunState) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	default:
		return "IDLE"
	}
}

// Forest coordinates multiple ForestNodes and an ordered chain of
// Middleware. AddNode/RemoveNode/AddMiddleware/RemoveMiddleware are
// disallowed once the forest has left Idle.
type Forest struct {
	name   string
	bus    *core.EventBus
	logger logging.Logger

	mu           sync.Mutex
	state        RunState
	nodes        map[string]*ForestNode
	middlewares  []middleware.Middleware
	order        []string // node names, insertion order, for stable layering input
	roundCounter int
}

// New constructs an empty Forest named name. bus, when non-nil, is the
// forest-level EventBus on which the forest publishes its forest.started and
// forest.stopped events (nil selects a fresh bus); Build also hands it to the
// SharedBlackboard and TaskBoard middleware it constructs. The other
// middleware kinds do not publish on it. logger defaults to a NoOpLogger.
func New(name string, bus *core.EventBus, logger logging.Logger) *Forest {
	if bus == nil {
		bus = core.NewEventBus()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Forest{
		name:   name,
		bus:    bus,
		logger: logger,
		nodes:  make(map[string]*ForestNode),
	}
}

// Name returns the forest's name.
func (f *Forest) Name() string { return f.name }

// Bus returns the forest-level EventBus.
func (f *Forest) Bus() *core.EventBus { return f.bus }

// State returns the forest's current run state.
func (f *Forest) State() RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// AddNode registers n, whose Name must be unique within the forest. It
// fails with InvalidForestState unless the forest is Idle.
func (f *Forest) AddNode(n *ForestNode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return abterr.New(abterr.InvalidForestState, n.Name, "cannot add a node while the forest is not idle")
	}
	if _, exists := f.nodes[n.Name]; exists {
		return abterr.New(abterr.InvalidTree, n.Name, "a forest node with this name already exists")
	}
	if n.Capabilities == nil {
		n.Capabilities = map[string]bool{}
	}
	f.nodes[n.Name] = n
	f.order = append(f.order, n.Name)
	for _, mw := range f.middlewares {
		if sw, ok := mw.(*middleware.StateWatch); ok {
			sw.Attach(n.Name, n.Tree.Bus())
		}
	}
	return nil
}

// RemoveNode removes the node named name, reporting whether it existed. It
// fails with InvalidForestState unless the forest is Idle.
func (f *Forest) RemoveNode(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return false, abterr.New(abterr.InvalidForestState, name, "cannot remove a node while the forest is not idle")
	}
	if _, ok := f.nodes[name]; !ok {
		return false, nil
	}
	delete(f.nodes, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Node returns the registered ForestNode named name, if any.
func (f *Forest) Node(name string) (*ForestNode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[name]
	return n, ok
}

// AddMiddleware appends mw to the forest's middleware chain. It fails with
// InvalidForestState unless the forest is Idle.
func (f *Forest) AddMiddleware(mw middleware.Middleware) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return abterr.New(abterr.InvalidForestState, mw.Name(), "cannot add middleware while the forest is not idle")
	}
	f.middlewares = append(f.middlewares, mw)
	if sw, ok := mw.(*middleware.StateWatch); ok {
		for _, n := range f.nodes {
			sw.Attach(n.Name, n.Tree.Bus())
		}
	}
	return nil
}

// RemoveMiddleware removes the first middleware named name, reporting
// whether one was found. It fails with InvalidForestState unless the
// forest is Idle.
func (f *Forest) RemoveMiddleware(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return false, abterr.New(abterr.InvalidForestState, name, "cannot remove middleware while the forest is not idle")
	}
	for i, mw := range f.middlewares {
		if mw.Name() == name {
			f.middlewares = append(f.middlewares[:i], f.middlewares[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Start transitions the forest Idle -> Running, starting every middleware
// in registration order. If any middleware fails to start, the ones
// already started are stopped (in reverse order) and the forest remains
// Idle.
func (f *Forest) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return abterr.New(abterr.InvalidForestState, f.name, "forest is not idle")
	}

	for _, mw := range f.middlewares {
		if sw, ok := mw.(*middleware.StateWatch); ok {
			for _, n := range f.nodes {
				sw.Attach(n.Name, n.Tree.Bus())
			}
		}
	}

	started := make([]middleware.Middleware, 0, len(f.middlewares))
	for _, mw := range f.middlewares {
		if err := mw.Start(ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop(ctx)
			}
			return abterr.Wrap(abterr.InvalidForestState, mw.Name(), "middleware failed to start", err)
		}
		started = append(started, mw)
	}

	f.state = Running
	f.bus.Publish(core.NewEvent("forest.started", f.name, map[string]any{"forest_name": f.name}))
	return nil
}

// Stop transitions the forest Running -> Stopped, stopping every middleware
// in reverse registration order. Calling Stop again once Stopped is a no-op.
func (f *Forest) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Stopped {
		return nil
	}
	for i := len(f.middlewares) - 1; i >= 0; i-- {
		if err := f.middlewares[i].Stop(ctx); err != nil {
			f.logger.Warn("forest.middleware.stop_error", "forest", f.name, "middleware", f.middlewares[i].Name(), "error", err)
		}
	}
	f.state = Stopped
	f.bus.Publish(core.NewEvent("forest.stopped", f.name, map[string]any{"forest_name": f.name}))
	return nil
}

// Tick runs one round: nodes are partitioned by their Dependencies into a
// topological sequence of layers, and every node within a layer is ticked
// concurrently. It returns a map from node name to the Status its tree
// produced this round.
func (f *Forest) Tick(ctx context.Context) (map[string]core.Status, error) {
	f.mu.Lock()
	names := append([]string(nil), f.order...)
	deps := make(map[string][]string, len(names))
	nodesByName := make(map[string]*ForestNode, len(names))
	mws := append([]middleware.Middleware(nil), f.middlewares...)
	f.mu.Unlock()

	for _, n := range names {
		node := f.nodes[n]
		deps[n] = node.Dependencies
		nodesByName[n] = node
	}

	layers, err := layerize(names, deps)
	if err != nil {
		return nil, err
	}

	round := f.nextRound()
	for _, mw := range mws {
		mw.BeforeTick(round)
	}

	results := make(map[string]core.Status, len(names))
	var resMu sync.Mutex
	for _, layer := range layers {
		var wg sync.WaitGroup
		for _, name := range layer {
			wg.Add(1)
			go func(n *ForestNode) {
				defer wg.Done()
				status, tickErr := n.Tree.Tick(ctx)
				if tickErr != nil {
					f.logger.Warn("forest.node.tick_error", "forest", f.name, "node", n.Name, "error", tickErr)
					status = core.FAILURE
				}
				resMu.Lock()
				results[n.Name] = status
				resMu.Unlock()
			}(nodesByName[name])
		}
		wg.Wait()
	}

	for _, mw := range mws {
		mw.AfterTick(round, results)
	}

	claimants := make([]middleware.Claimant, 0, len(names))
	for _, n := range names {
		node := nodesByName[n]
		claimants = append(claimants, middleware.Claimant{
			Name:         node.Name,
			Capabilities: node.Capabilities,
			Accept: func(t middleware.Task) bool {
				node.Tree.Blackboard().Set("claimed_task", t)
				return true
			},
		})
	}
	for _, mw := range mws {
		if tb, ok := mw.(*middleware.TaskBoard); ok {
			tb.Offer(claimants)
		}
	}

	return results, nil
}

func (f *Forest) nextRound() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roundCounter++
	return f.roundCounter
}

// Run ticks the forest repeatedly at interval until ctx is cancelled or
// Stop is called, compensating for drift by scheduling the next tick off a
// fixed target time (target += interval) rather than off elapsed wall time
// since the previous tick finished.
func (f *Forest) Run(ctx context.Context, interval time.Duration) error {
	target := time.Now()
	for {
		if f.State() != Running {
			return nil
		}
		if _, err := f.Tick(ctx); err != nil {
			return err
		}

		target = target.Add(interval)
		delay := time.Until(target)
		if delay < 0 {
			delay = 0
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
