package node

import (
	"fmt"
	"time"

	"github.com/xiongwc/abtree/core"
)

// ActionFunc is the user-supplied body of an Action node. It returns the
// resulting Status directly, or an error if execution failed outright. An
// Action never propagates a Go error out of Tick: an error return (or a
// recovered panic) is converted to FAILURE plus a "node.error" event on the
// tree's bus, the same conversion flow.BaseFlow.emitError performs for its
// own internal failures in the teacher repo this module is modeled on.
type ActionFunc func(tc *core.TickContext) (core.Status, error)

// Action is a leaf node that delegates its Tick to an ActionFunc.
type Action struct {
	Base
	fn ActionFunc
}

// NewAction constructs an Action node named name running fn.
func NewAction(name string, fn ActionFunc) *Action {
	a := &Action{fn: fn}
	a.Base = NewBase(name)
	return a
}

// Tick runs fn, converting an error or panic into FAILURE plus an emitted
// error event.
func (a *Action) Tick(tc *core.TickContext) (status core.Status) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			status = a.RecordStatus(tc, core.FAILURE)
			tc.EmitError(a.Name(), fmt.Errorf("action panic: %v", r))
		}
		tc.Logger.Debug("action.tick", "node", a.Name(), "status", status.String(), "duration", time.Since(start))
	}()

	result, err := a.fn(tc)
	if err != nil {
		tc.EmitError(a.Name(), err)
		return a.RecordStatus(tc, core.FAILURE)
	}
	return a.RecordStatus(tc, result)
}

// Reset clears the node's last-observed status; an Action carries no
// other state between ticks.
func (a *Action) Reset() { a.ResetStatus() }
