package abtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiongwc/abtree/core"
)

func TestNewTreeLoadsXMLAgainstBuiltinRegistry(t *testing.T) {
	doc := `
	<BehaviorTree name="door">
	  <Selector name="root">
	    <Sequence name="s">
	      <CheckBlackboard name="c" key="door_open" expected_value="true"/>
	      <Log name="l" message="closing"/>
	    </Sequence>
	  </Selector>
	</BehaviorTree>`

	bt := NewTree()
	require.NoError(t, bt.LoadFromXML(doc))
	bt.Blackboard().Set("door_open", "true")

	status, err := bt.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SUCCESS, status)
}

func TestNewForestStartsEmpty(t *testing.T) {
	f := NewForest("patrol", nil)
	assert.Equal(t, "patrol", f.Name())
	require.NoError(t, f.Start(context.Background()))
	require.NoError(t, f.Stop(context.Background()))
}
