package node

import (
	"fmt"

	"github.com/xiongwc/abtree/core"
)

// ConditionFunc is the user-supplied predicate of a Condition node. It
// never returns RUNNING: a condition is evaluated to completion in a
// single tick.
type ConditionFunc func(tc *core.TickContext) (bool, error)

// Condition is a leaf node that evaluates a predicate and returns SUCCESS
// or FAILURE accordingly.
type Condition struct {
	Base
	fn ConditionFunc
}

// NewCondition constructs a Condition node named name evaluating fn.
func NewCondition(name string, fn ConditionFunc) *Condition {
	c := &Condition{fn: fn}
	c.Base = NewBase(name)
	return c
}

// Tick evaluates fn, converting an error or panic into FAILURE plus an
// emitted error event.
func (c *Condition) Tick(tc *core.TickContext) (status core.Status) {
	defer func() {
		if r := recover(); r != nil {
			status = c.RecordStatus(tc, core.FAILURE)
			tc.EmitError(c.Name(), fmt.Errorf("condition panic: %v", r))
		}
	}()

	ok, err := c.fn(tc)
	if err != nil {
		tc.EmitError(c.Name(), err)
		return c.RecordStatus(tc, core.FAILURE)
	}
	if ok {
		return c.RecordStatus(tc, core.SUCCESS)
	}
	return c.RecordStatus(tc, core.FAILURE)
}

// Reset clears the node's last-observed status.
func (c *Condition) Reset() { c.ResetStatus() }
