package core

import (
	"sync"
	"testing"
)

func TestBlackboardGetSetRemove(t *testing.T) {
	bb := NewBlackboard(nil)
	if _, ok := bb.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
	bb.Set("key", 42)
	v, ok := bb.Get("key")
	if !ok || v != 42 {
		t.Fatalf("Get(key) = %v, %v; want 42, true", v, ok)
	}
	if !bb.Remove("key") {
		t.Fatalf("Remove(key) = false, want true")
	}
	if bb.Has("key") {
		t.Fatalf("Has(key) = true after remove")
	}
}

func TestBlackboardSetPublishesChange(t *testing.T) {
	bus := NewEventBus()
	bb := NewBlackboard(bus)

	var mu sync.Mutex
	var events []Event
	bus.Subscribe("blackboard.changed", func(e Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	})

	bb.Set("door", "closed")
	bb.Set("door", "closed") // same comparable value: no new event
	bb.Set("door", "open")
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d change events, want 2", len(events))
	}
	// Each Publish dispatches on its own goroutine, so the two events may
	// arrive in either order.
	got := map[any]int{}
	for _, e := range events {
		got[e.Data["new_value"]]++
	}
	if got["closed"] != 1 || got["open"] != 1 {
		t.Fatalf("change event new_values = %v, want one closed and one open", got)
	}
}

func TestBlackboardOnChangeFiltersByKey(t *testing.T) {
	bus := NewEventBus()
	bb := NewBlackboard(bus)

	var mu sync.Mutex
	var seen []string
	bb.OnChange("door", func(key string, value any, removed bool) {
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
	})

	bb.Set("other", 1)
	bb.Set("door", "open")
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "door" {
		t.Fatalf("OnChange handler fired for %v, want exactly [door]", seen)
	}
}

func TestBlackboardOnChangeReceivesRemovedSentinel(t *testing.T) {
	bus := NewEventBus()
	bb := NewBlackboard(bus)

	var mu sync.Mutex
	var gotRemoved bool
	// The Set and Remove events may be delivered in either order, so record
	// whether the removal was seen at all rather than which came last.
	bb.OnChange("door", func(key string, value any, removed bool) {
		mu.Lock()
		if removed {
			gotRemoved = true
		}
		mu.Unlock()
	})

	bb.Set("door", "open")
	bb.Remove("door")
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !gotRemoved {
		t.Fatalf("expected OnChange to observe removal")
	}
}

func TestBlackboardCloneIsIndependent(t *testing.T) {
	bb := NewBlackboard(nil)
	bb.Set("a", 1)
	clone := bb.Clone()
	clone.Set("a", 2)
	v, _ := bb.Get("a")
	if v != 1 {
		t.Fatalf("original mutated by clone: a = %v", v)
	}
}

func TestBlackboardJSONRoundTrip(t *testing.T) {
	bb := NewBlackboard(nil)
	bb.Set("name", "door")
	bb.Set("open", false)

	doc, err := bb.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	imported := NewBlackboard(nil)
	if err := imported.ImportJSON(doc); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	v, ok := imported.Get("name")
	if !ok || v != "door" {
		t.Fatalf("imported name = %v, %v; want door, true", v, ok)
	}
}

func TestBlackboardConcurrentAccess(t *testing.T) {
	bb := NewBlackboard(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) { defer wg.Done(); bb.Set("k", i) }(i)
		go func() { defer wg.Done(); bb.Get("k") }()
	}
	wg.Wait()
}
