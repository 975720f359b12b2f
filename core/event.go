package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// NewID returns a new random identifier, used for event IDs, subscription
// IDs, and TaskBoard task IDs throughout this module.
func NewID() string { return uuid.NewString() }

// Event is a single message published on an EventBus. Name identifies the
// topic (e.g. "blackboard.changed", "node.error", "handler_error");
// Source identifies the publisher (a node name, a forest node ID); Data
// carries an arbitrary, topic-specific payload.
type Event struct {
	ID     string
	Name   string
	Source string
	Data   map[string]any
}

// NewEvent constructs an Event with a fresh ID.
func NewEvent(name, source string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{ID: NewID(), Name: name, Source: source, Data: data}
}

// Handler processes one Event. A Handler that panics or returns an error is
// isolated by the bus: neither condition interrupts delivery to the other
// subscribers of the same event, and both are reported as a HandlerError
// event on the "handler_error" topic.
type Handler func(Event) error

// EventStats tracks bookkeeping for one named topic: how many times it has
// fired and the most recent publisher/event seen. This mirrors
// original_source/abtree's EventInfo bookkeeping.
type EventStats struct {
	Name         string
	TriggerCount int
	LastSource   string
	LastEventID  string
}

type subscription struct {
	id      string
	handler Handler
}

// EventBus is an asynchronous, subscription-ordered publish/subscribe hub.
// Publish never blocks on subscriber work: each call to Publish hands the
// event to a goroutine that dispatches to every subscriber of that topic, in
// the order they subscribed. A handler's panic or error is recovered and
// reported as a "handler_error" event rather than propagated to the
// publisher or to sibling handlers.
type EventBus struct {
	mu    sync.RWMutex
	subs  map[string][]subscription
	stats map[string]*EventStats
	wg    sync.WaitGroup
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs:  make(map[string][]subscription),
		stats: make(map[string]*EventStats),
	}
}

// Subscribe registers handler for topic name, returning a subscription ID
// usable with Unsubscribe. Handlers for the same topic are invoked in
// registration order.
func (b *EventBus) Subscribe(name string, handler Handler) string {
	id := NewID()
	b.mu.Lock()
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a previously registered handler by its subscription ID.
func (b *EventBus) Unsubscribe(name, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish asynchronously delivers event to every subscriber of event.Name,
// in subscription order. It returns immediately; use Wait in tests that
// need delivery to have completed.
func (b *EventBus) Publish(event Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[event.Name]))
	copy(subs, b.subs[event.Name])
	stat, ok := b.stats[event.Name]
	if !ok {
		stat = &EventStats{Name: event.Name}
		b.stats[event.Name] = stat
	}
	stat.TriggerCount++
	stat.LastSource = event.Source
	stat.LastEventID = event.ID
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for _, s := range subs {
			b.dispatchOne(s, event)
		}
	}()
}

func (b *EventBus) dispatchOne(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.reportHandlerError(event, fmt.Errorf("handler panic: %v", r))
		}
	}()
	if err := s.handler(event); err != nil {
		b.reportHandlerError(event, err)
	}
}

func (b *EventBus) reportHandlerError(event Event, err error) {
	if event.Name == "handler_error" {
		// Avoid infinite recursion if a handler_error handler itself fails.
		return
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs["handler_error"]))
	copy(subs, b.subs["handler_error"])
	b.mu.RUnlock()
	errEvent := NewEvent("handler_error", event.Source, map[string]any{
		"topic": event.Name,
		"event": event,
		"error": err.Error(),
	})
	for _, s := range subs {
		func() {
			defer func() { recover() }()
			_ = s.handler(errEvent)
		}()
	}
}

// Stats returns the bookkeeping for a named topic and whether it has ever
// been published.
func (b *EventBus) Stats(name string) (EventStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.stats[name]
	if !ok {
		return EventStats{}, false
	}
	return *s, true
}

// Wait blocks until every Publish call issued so far has finished
// dispatching to all of its subscribers. Intended for tests.
func (b *EventBus) Wait() { b.wg.Wait() }
