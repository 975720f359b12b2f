package core

import (
	"errors"
	"sync"
	"testing"
)

func TestEventBusDispatchesInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe("topic", func(Event) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	bus.Publish(NewEvent("topic", "test", nil))
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("got %d deliveries, want 5", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestEventBusIsolatesHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var secondCalled bool
	var mu sync.Mutex

	bus.Subscribe("topic", func(Event) error { return errors.New("boom") })
	bus.Subscribe("topic", func(Event) error {
		mu.Lock()
		secondCalled = true
		mu.Unlock()
		return nil
	})

	var gotHandlerError bool
	bus.Subscribe("handler_error", func(e Event) error {
		mu.Lock()
		gotHandlerError = true
		mu.Unlock()
		return nil
	})

	bus.Publish(NewEvent("topic", "test", nil))
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !secondCalled {
		t.Fatalf("second handler was not called after first returned an error")
	}
	if !gotHandlerError {
		t.Fatalf("expected a handler_error event to be published")
	}
}

func TestEventBusRecoversPanickingHandler(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe("topic", func(Event) error { panic("boom") })
	bus.Publish(NewEvent("topic", "test", nil)) // must not crash the test
	bus.Wait()
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var called bool
	id := bus.Subscribe("topic", func(Event) error { called = true; return nil })
	bus.Unsubscribe("topic", id)
	bus.Publish(NewEvent("topic", "test", nil))
	bus.Wait()
	if called {
		t.Fatalf("unsubscribed handler was still called")
	}
}

func TestEventBusStats(t *testing.T) {
	bus := NewEventBus()
	if _, ok := bus.Stats("topic"); ok {
		t.Fatalf("expected no stats before any publish")
	}
	bus.Publish(NewEvent("topic", "src", nil))
	bus.Wait()
	stats, ok := bus.Stats("topic")
	if !ok || stats.TriggerCount != 1 || stats.LastSource != "src" {
		t.Fatalf("unexpected stats: %+v ok=%v", stats, ok)
	}
}
