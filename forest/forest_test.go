package forest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/middleware"
	"github.com/xiongwc/abtree/node"
	"github.com/xiongwc/abtree/tree"
)

func treeThatReturns(t *testing.T, name string, status core.Status) *tree.BehaviorTree {
	t.Helper()
	bt := tree.New(tree.WithName(name))
	require.NoError(t, bt.LoadFromNode(node.NewAction(name, func(tc *core.TickContext) (core.Status, error) {
		return status, nil
	})))
	return bt
}

func TestForestAddNodeRejectsDuplicateName(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS)}))
	err := f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS)})
	assert.Error(t, err)
}

func TestForestAddNodeRejectsWhileRunning(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS)}))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop(context.Background())

	err := f.AddNode(&ForestNode{Name: "b", Tree: treeThatReturns(t, "b", core.SUCCESS)})
	assert.Error(t, err)
}

func TestForestTickReturnsStatusPerNode(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS)}))
	require.NoError(t, f.AddNode(&ForestNode{Name: "b", Tree: treeThatReturns(t, "b", core.FAILURE)}))

	results, err := f.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, results["a"])
	assert.Equal(t, core.FAILURE, results["b"])
}

func TestForestTickRespectsDependencyOrder(t *testing.T) {
	var order []string
	mk := func(name string) *tree.BehaviorTree {
		bt := tree.New(tree.WithName(name))
		require.NoError(t, bt.LoadFromNode(node.NewAction(name, func(tc *core.TickContext) (core.Status, error) {
			order = append(order, name)
			return core.SUCCESS, nil
		})))
		return bt
	}

	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "A", Tree: mk("A")}))
	require.NoError(t, f.AddNode(&ForestNode{Name: "B", Tree: mk("B"), Dependencies: []string{"A"}}))
	require.NoError(t, f.AddNode(&ForestNode{Name: "C", Tree: mk("C"), Dependencies: []string{"A"}}))

	_, err := f.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, order, 3)
	assert.Equal(t, "A", order[0]) // A must complete before B and C start
}

func TestForestTickUnknownDependency(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS), Dependencies: []string{"ghost"}}))
	_, err := f.Tick(context.Background())
	assert.Error(t, err)
}

func TestForestTickCyclicDependency(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: treeThatReturns(t, "a", core.SUCCESS), Dependencies: []string{"b"}}))
	require.NoError(t, f.AddNode(&ForestNode{Name: "b", Tree: treeThatReturns(t, "b", core.SUCCESS), Dependencies: []string{"a"}}))
	_, err := f.Tick(context.Background())
	assert.Error(t, err)
}

func TestForestStartStopLifecycle(t *testing.T) {
	f := New("f", nil, nil)
	assert.Equal(t, Idle, f.State())

	require.NoError(t, f.Start(context.Background()))
	assert.Equal(t, Running, f.State())

	require.NoError(t, f.Stop(context.Background()))
	assert.Equal(t, Stopped, f.State())

	// Stop is idempotent.
	require.NoError(t, f.Stop(context.Background()))
	assert.Equal(t, Stopped, f.State())
}

func TestForestStartRollsBackOnMiddlewareFailure(t *testing.T) {
	f := New("f", nil, nil)
	require.NoError(t, f.AddMiddleware(&failingMiddleware{}))
	err := f.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Idle, f.State())
}

func TestForestRunTicksUntilStopped(t *testing.T) {
	var ticks int
	bt := tree.New(tree.WithName("a"))
	require.NoError(t, bt.LoadFromNode(node.NewAction("a", func(tc *core.TickContext) (core.Status, error) {
		ticks++
		return core.SUCCESS, nil
	})))

	f := New("f", nil, nil)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: bt}))
	require.NoError(t, f.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(40 * time.Millisecond)
		f.Stop(context.Background())
	}()

	_ = f.Run(ctx, 5*time.Millisecond)
	assert.Greater(t, ticks, 1)
}

func TestForestTickOffersTasksToCapableNodes(t *testing.T) {
	f := New("f", nil, nil)
	bus := core.NewEventBus()
	tb := middleware.NewTaskBoard("tasks", bus)
	require.NoError(t, f.AddMiddleware(tb))
	require.NoError(t, f.AddNode(&ForestNode{
		Name:         "worker",
		Tree:         treeThatReturns(t, "worker", core.SUCCESS),
		Capabilities: map[string]bool{"drive": true},
	}))

	id := tb.Submit("go somewhere", []string{"drive"}, 0)

	_, err := f.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, tb.Pending())
	node, ok := f.Node("worker")
	require.True(t, ok)
	claimed, ok := node.Tree.Blackboard().Get("claimed_task")
	require.True(t, ok)
	assert.Equal(t, id, claimed.(middleware.Task).ID)
}

func TestForestTickLeavesIncapableTaskUnclaimed(t *testing.T) {
	f := New("f", nil, nil)
	tb := middleware.NewTaskBoard("tasks", nil)
	require.NoError(t, f.AddMiddleware(tb))
	require.NoError(t, f.AddNode(&ForestNode{
		Name:         "watcher",
		Tree:         treeThatReturns(t, "watcher", core.SUCCESS),
		Capabilities: map[string]bool{},
	}))

	tb.Submit("go somewhere", []string{"drive"}, 0)

	_, err := f.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Pending())
}

func TestForestAddNodeAttachesExistingStateWatch(t *testing.T) {
	f := New("f", nil, nil)
	sw := middleware.NewStateWatch("watch")
	require.NoError(t, f.AddMiddleware(sw))

	bt := treeThatReturns(t, "a", core.SUCCESS)
	require.NoError(t, f.AddNode(&ForestNode{Name: "a", Tree: bt}))

	fired := make(chan struct{}, 1)
	sw.Watch("a", "door", func(treeName, key string, value any, removed bool) {
		fired <- struct{}{}
	})

	bt.Blackboard().Set("door", "open")
	bt.Bus().Wait()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("StateWatch handler never fired; Attach was not wired to the node's bus")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string                                        { return "failing" }
func (failingMiddleware) Start(ctx context.Context) error                     { return assert.AnError }
func (failingMiddleware) Stop(ctx context.Context) error                      { return nil }
func (failingMiddleware) BeforeTick(round int)                                {}
func (failingMiddleware) AfterTick(round int, results map[string]core.Status) {}
