package middleware

import (
	"context"
	"sync"

	"github.com/xiongwc/abtree/core"
)

// removedMarker is the sentinel StateWatchHandler receives as its value
// argument when the watched key was removed rather than set, per spec
// §4.9: "No value transmission if the key is removed during dispatch
// (handler receives the sentinel 'removed')".
type removedMarker struct{}

func (removedMarker) String() string { return "<removed>" }

// Removed is the sentinel value passed to a StateWatchHandler when the
// watched key was removed.
var Removed = removedMarker{}

// StateWatchHandler observes one change to a watched (treeName, key) pair.
// When removed is true, value is the Removed sentinel.
type StateWatchHandler func(treeName, key string, value any, removed bool)

type stateWatchEntry struct {
	id      string
	handler StateWatchHandler
}

// StateWatch is spec §4.9's cross-tree state observation channel: a tree's
// writes to its own local blackboard are observed by watchers registered
// for that (tree_name, key) pair on other trees. It rides the owning tree's
// existing "blackboard.changed" event — every write that changes a value,
// and every removal, already publishes one (core.Blackboard §4.3); a Set
// that stores an equal comparable value publishes nothing and so reaches no
// watcher — rather than requiring the blackboard itself to
// track which keys are "watched"; a (tree, key) pair with no registered
// watcher simply has nothing to dispatch to, which is observably
// equivalent to the source's explicit watched-key tagging. Grounded on
// tool/state_manager.go's narrow read/write surface over session state and
// core.Session.GetState's tagged-key-lookup idiom.
type StateWatch struct {
	Base

	mu       sync.Mutex
	watchers map[string][]stateWatchEntry
	attached map[string]string
	buses    map[string]*core.EventBus
}

// NewStateWatch constructs an empty StateWatch middleware named name.
func NewStateWatch(name string) *StateWatch {
	return &StateWatch{
		Base:     NewBase(name),
		watchers: make(map[string][]stateWatchEntry),
		attached: make(map[string]string),
		buses:    make(map[string]*core.EventBus),
	}
}

func watchKey(treeName, key string) string { return treeName + "\x00" + key }

// Attach wires StateWatch into treeName's own EventBus so its blackboard
// writes can be observed. forest.Forest calls this once per ForestNode when
// the node is added. Calling it twice for the same tree name is a no-op.
func (s *StateWatch) Attach(treeName string, bus *core.EventBus) {
	s.mu.Lock()
	if _, ok := s.attached[treeName]; ok {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	subID := bus.Subscribe("blackboard.changed", func(e core.Event) error {
		key, _ := e.Data["key"].(string)
		removed, _ := e.Data["removed"].(bool)
		s.dispatch(treeName, key, e.Data["new_value"], removed)
		return nil
	})

	s.mu.Lock()
	s.attached[treeName] = subID
	s.buses[treeName] = bus
	s.mu.Unlock()
}

func (s *StateWatch) dispatch(treeName, key string, value any, removed bool) {
	s.mu.Lock()
	entries := append([]stateWatchEntry(nil), s.watchers[watchKey(treeName, key)]...)
	s.mu.Unlock()

	for _, e := range entries {
		if removed {
			e.handler(treeName, key, Removed, true)
		} else {
			e.handler(treeName, key, value, false)
		}
	}
}

// Watch registers handler to observe changes to (treeName, key), returning
// a subscription ID usable with Unwatch.
func (s *StateWatch) Watch(treeName, key string, handler StateWatchHandler) string {
	id := core.NewID()
	s.mu.Lock()
	k := watchKey(treeName, key)
	s.watchers[k] = append(s.watchers[k], stateWatchEntry{id: id, handler: handler})
	s.mu.Unlock()
	return id
}

// Unwatch removes a previously registered watcher.
func (s *StateWatch) Unwatch(treeName, key, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := watchKey(treeName, key)
	entries := s.watchers[k]
	for i, e := range entries {
		if e.id == id {
			s.watchers[k] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Start is a no-op: attachment happens per-tree via Attach.
func (s *StateWatch) Start(ctx context.Context) error { return nil }

// Stop detaches from every tree bus it was attached to.
func (s *StateWatch) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for treeName, subID := range s.attached {
		if bus := s.buses[treeName]; bus != nil {
			bus.Unsubscribe("blackboard.changed", subID)
		}
	}
	s.attached = make(map[string]string)
	s.buses = make(map[string]*core.EventBus)
	return nil
}
