package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/node"
	"github.com/xiongwc/abtree/registry"
)

func doorTree(t *testing.T) *BehaviorTree {
	t.Helper()
	bt := New(WithName("door"))
	closing := node.NewAction("closing", func(tc *core.TickContext) (core.Status, error) {
		return core.SUCCESS, nil
	})
	root := node.NewSelector("root",
		node.NewSequence("check_and_close",
			node.NewCheckBlackboard("is_open", "door_open", "true"),
			closing,
		),
	)
	require.NoError(t, bt.LoadFromNode(root))
	return bt
}

func TestBehaviorTreeTickSucceeds(t *testing.T) {
	bt := doorTree(t)
	bt.Blackboard().Set("door_open", "true")

	status, err := bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, status)
}

func TestBehaviorTreeWithNilLoggerFallsBackToNoOp(t *testing.T) {
	bt := New(WithLogger(nil))
	require.NoError(t, bt.LoadFromNode(node.NewAction("a", func(tc *core.TickContext) (core.Status, error) {
		return core.SUCCESS, nil
	})))

	status, err := bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, status)
}

func TestBehaviorTreeTickFailsWithoutRoot(t *testing.T) {
	bt := New()
	_, err := bt.Tick(context.Background())
	require.Error(t, err)
}

func TestBehaviorTreeLoadFromNodeRejectsEmptyName(t *testing.T) {
	bt := New()
	unnamed := node.NewAction("", func(tc *core.TickContext) (core.Status, error) {
		return core.SUCCESS, nil
	})
	err := bt.LoadFromNode(unnamed)
	require.Error(t, err)
}

func TestBehaviorTreeLoadFromNodeAcceptsEmptySequence(t *testing.T) {
	bt := New()
	require.NoError(t, bt.LoadFromNode(node.NewSequence("seq")))
}

func TestBehaviorTreeLoadFromXML(t *testing.T) {
	doc := `
	<BehaviorTree name="T">
	  <Selector name="root">
	    <Sequence name="s">
	      <CheckBlackboard name="c" key="door_open" expected_value="true"/>
	      <Wait name="w" duration="0s"/>
	    </Sequence>
	  </Selector>
	</BehaviorTree>`

	reg := registry.New(nil)
	registry.RegisterBuiltins(reg)
	bt := New(WithRegistry(reg))
	require.NoError(t, bt.LoadFromXML(doc))
	assert.Equal(t, "T", bt.Name())

	bt.Blackboard().Set("door_open", "true")
	status, err := bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, status)
}

func TestBehaviorTreeResumesRunningAcrossTicks(t *testing.T) {
	attempts := 0
	resumable := node.NewAction("resumable", func(tc *core.TickContext) (core.Status, error) {
		attempts++
		if attempts < 2 {
			return core.RUNNING, nil
		}
		return core.SUCCESS, nil
	})
	bt := New()
	require.NoError(t, bt.LoadFromNode(resumable))

	status, err := bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.RUNNING, status)

	status, err = bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, status)
	assert.Equal(t, 2, attempts)
}

func TestBehaviorTreeResetClearsRunningState(t *testing.T) {
	attempts := 0
	resumable := node.NewAction("resumable", func(tc *core.TickContext) (core.Status, error) {
		attempts++
		return core.RUNNING, nil
	})
	bt := New()
	require.NoError(t, bt.LoadFromNode(resumable))
	_, _ = bt.Tick(context.Background())
	bt.Reset()
	assert.Equal(t, core.FAILURE, bt.Root().Status())
}

func TestBehaviorTreeEmitsTickEvents(t *testing.T) {
	bt := New()
	require.NoError(t, bt.LoadFromNode(node.NewAction("a", func(tc *core.TickContext) (core.Status, error) {
		return core.SUCCESS, nil
	})))

	var starts, ends int
	bt.Bus().Subscribe("tree.tick.start", func(core.Event) error { starts++; return nil })
	bt.Bus().Subscribe("tree.tick.end", func(core.Event) error { ends++; return nil })

	_, err := bt.Tick(context.Background())
	require.NoError(t, err)
	bt.Bus().Wait()

	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
}
