package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/xiongwc/abtree/core"
)

// Task is one unit of work offered on a TaskBoard.
type Task struct {
	ID                   string
	Payload              any
	RequiredCapabilities []string
}

// Claimant is a candidate forest node evaluated against pending tasks on
// every TaskBoard.Offer round. Capabilities is the node's full capability
// set; Accept is invoked only for tasks whose RequiredCapabilities are a
// subset of Capabilities, and claims the task by returning true.
type Claimant struct {
	Name         string
	Capabilities map[string]bool
	Accept       func(Task) bool
}

type boardTask struct {
	id          string
	payload     any
	required    []string
	submittedAt time.Time
	ttl         time.Duration
}

// TaskBoard is spec §4.9's capability-routed work queue: submit(task,
// required_capabilities) appends FIFO; at each tick, the board offers
// pending tasks, oldest first, to forest nodes whose capability set is a
// superset of the task's required capabilities, and the first one to
// accept claims it; unclaimed tasks remain queued for future ticks up to an
// optional TTL. Grounded on runner.Runner's activeRuns bookkeeping style
// (map + mutex + background expiry check); no teacher file is itself a
// task queue, so the claiming algorithm follows spec §4.9 directly.
type TaskBoard struct {
	Base
	bus *core.EventBus

	mu      sync.Mutex
	pending []*boardTask
}

// NewTaskBoard constructs an empty TaskBoard publishing task.claimed /
// task.expired events on bus.
func NewTaskBoard(name string, bus *core.EventBus) *TaskBoard {
	return &TaskBoard{Base: NewBase(name), bus: bus}
}

// Start is a no-op.
func (t *TaskBoard) Start(ctx context.Context) error { return nil }

// Stop is a no-op; queued tasks stay queued.
func (t *TaskBoard) Stop(ctx context.Context) error { return nil }

// Submit appends a task requiring requiredCapabilities to the FIFO queue,
// returning its ID. ttl <= 0 means the task never expires.
func (t *TaskBoard) Submit(payload any, requiredCapabilities []string, ttl time.Duration) string {
	id := core.NewID()
	t.mu.Lock()
	t.pending = append(t.pending, &boardTask{
		id:          id,
		payload:     payload,
		required:    requiredCapabilities,
		submittedAt: time.Now(),
		ttl:         ttl,
	})
	t.mu.Unlock()
	return id
}

// Pending returns the number of tasks still queued, for introspection/tests.
func (t *TaskBoard) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Offer runs one claiming round over claimants, called by forest.Forest
// once per tick round (after AfterTick, so every tree has had a chance to
// produce new tasks this round). Expired tasks are dropped and reported via
// "task.expired"; claimed tasks are dropped and reported via "task.claimed".
func (t *TaskBoard) Offer(claimants []Claimant) {
	t.mu.Lock()
	var remaining []*boardTask
	type outcome struct {
		event string
		task  *boardTask
		by    string
	}
	var outcomes []outcome

	for _, bt := range t.pending {
		if bt.ttl > 0 && time.Since(bt.submittedAt) > bt.ttl {
			outcomes = append(outcomes, outcome{event: "task.expired", task: bt})
			continue
		}
		claimed := false
		for _, c := range claimants {
			if !hasCapabilities(c.Capabilities, bt.required) {
				continue
			}
			if c.Accept(Task{ID: bt.id, Payload: bt.payload, RequiredCapabilities: bt.required}) {
				outcomes = append(outcomes, outcome{event: "task.claimed", task: bt, by: c.Name})
				claimed = true
				break
			}
		}
		if !claimed {
			remaining = append(remaining, bt)
		}
	}
	t.pending = remaining
	t.mu.Unlock()

	if t.bus == nil {
		return
	}
	for _, o := range outcomes {
		switch o.event {
		case "task.claimed":
			t.bus.Publish(core.NewEvent("task.claimed", o.by, map[string]any{"task_id": o.task.id, "tree_name": o.by}))
		case "task.expired":
			t.bus.Publish(core.NewEvent("task.expired", t.Name(), map[string]any{"task_id": o.task.id}))
		}
	}
}

func hasCapabilities(have map[string]bool, required []string) bool {
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}
