package core

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Blackboard is a concurrency-safe keyed store shared by every node in a
// tree (and, through middleware.SharedBlackboard, across a forest). Writes
// are atomic with respect to reads; a change to an existing key's value (or
// the creation of a new key) is announced asynchronously on the owning
// EventBus rather than synchronously from within Set, so a subscriber can
// never block a tick.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
	bus  *EventBus
}

// NewBlackboard constructs an empty Blackboard. bus may be nil, in which
// case change notifications are simply not published.
func NewBlackboard(bus *EventBus) *Blackboard {
	return &Blackboard{data: make(map[string]any), bus: bus}
}

// Get returns the value stored at key and whether it was present.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Has reports whether key is present.
func (b *Blackboard) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

// Set stores value at key, publishing a "blackboard.changed" event if bus
// is non-nil and the value differs from (or key did not previously hold) a
// comparable prior value. Non-comparable values (slices, maps, funcs) are
// always treated as changed.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	old, existed := b.data[key]
	b.data[key] = value
	b.mu.Unlock()

	if b.bus == nil {
		return
	}
	if existed && valuesEqual(old, value) {
		return
	}
	b.bus.Publish(NewEvent("blackboard.changed", key, map[string]any{
		"key":       key,
		"old_value": old,
		"new_value": value,
		"existed":   existed,
		"removed":   false,
	}))
}

// ChangeHandler observes one change to key: removed is true when the key
// was deleted (value is then nil), false for a Set (value is the new value).
type ChangeHandler func(key string, value any, removed bool)

// OnChange is spec §4.3's direct "on_change(key, handler)" surface: it
// subscribes handler to this blackboard's "blackboard.changed" topic,
// filtering to events for key, and returns a subscription ID usable with
// Unsubscribe. It is sugar over subscribing to the bus directly and
// filtering by key in the handler; OnChange does nothing if the blackboard
// was constructed with a nil bus.
func (b *Blackboard) OnChange(key string, handler ChangeHandler) string {
	if b.bus == nil {
		return ""
	}
	return b.bus.Subscribe("blackboard.changed", func(e Event) error {
		if e.Data["key"] != key {
			return nil
		}
		removed, _ := e.Data["removed"].(bool)
		handler(key, e.Data["new_value"], removed)
		return nil
	})
}

// Unsubscribe removes a subscription previously registered via OnChange. It
// is a no-op if the blackboard was constructed with a nil bus.
func (b *Blackboard) Unsubscribe(id string) {
	if b.bus == nil {
		return
	}
	b.bus.Unsubscribe("blackboard.changed", id)
}

func valuesEqual(a, b any) bool {
	defer func() { recover() }()
	return a == b
}

// Remove deletes key, returning whether it was present. If it was present
// and bus is non-nil, a "blackboard.changed" event with "removed": true is
// published (new_value is nil) — this is what lets
// middleware.StateWatch deliver its "removed" sentinel to watchers instead
// of a stale value.
func (b *Blackboard) Remove(key string) bool {
	b.mu.Lock()
	old, ok := b.data[key]
	delete(b.data, key)
	b.mu.Unlock()

	if ok && b.bus != nil {
		b.bus.Publish(NewEvent("blackboard.changed", key, map[string]any{
			"key":       key,
			"old_value": old,
			"new_value": nil,
			"existed":   true,
			"removed":   true,
		}))
	}
	return ok
}

// Keys returns a snapshot of the currently stored keys, in no particular
// order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

// Clone returns a new, independent Blackboard (sharing the same EventBus)
// containing a shallow copy of every key/value pair.
func (b *Blackboard) Clone() *Blackboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	clone := NewBlackboard(b.bus)
	for k, v := range b.data {
		clone.data[k] = v
	}
	return clone
}

// ExportJSON serializes the blackboard to a JSON document. Values that are
// not JSON-marshalable are rendered via fmt.Sprintf("%v", ...) as strings
// rather than failing the export.
func (b *Blackboard) ExportJSON() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc := "{}"
	for k, v := range b.data {
		next, err := sjson.Set(doc, k, v)
		if err != nil {
			next, err = sjson.Set(doc, k, fmt.Sprintf("%v", v))
			if err != nil {
				return "", err
			}
		}
		doc = next
	}
	return doc, nil
}

// ImportJSON merges every top-level field of doc into the blackboard, as if
// each had been passed to Set individually (and so subject to the same
// change-notification rule).
func (b *Blackboard) ImportJSON(doc string) error {
	result := gjson.Parse(doc)
	if !result.IsObject() {
		return nil
	}
	var setErr error
	result.ForEach(func(key, value gjson.Result) bool {
		b.Set(key.String(), value.Value())
		return true
	})
	return setErr
}

// Snapshot returns a shallow copy of every key/value pair, for callers that
// need a point-in-time view without holding the blackboard's lock.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}
