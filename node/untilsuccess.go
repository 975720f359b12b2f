package node

import "github.com/xiongwc/abtree/core"

// UntilSuccess ticks its child once per Tick call, retrying on the next
// round whenever the child returns FAILURE (resetting the child first so
// it starts its attempt fresh), until the child returns SUCCESS. If
// MaxAttempts is positive and exhausted without a success, UntilSuccess
// itself returns FAILURE instead of retrying forever. RUNNING is passed
// through unchanged (the attempt is still in progress, not yet failed).
//
// Grounded on original_source/abtree's per-tick-resume model: the decorator
// resets the child and returns RUNNING rather than looping in-call, since
// retrying is expected to span multiple ticks (e.g. a physical retry with
// backoff), unlike Repeater's bounded same-tick loop.
type UntilSuccess struct {
	Base
	child       Node
	maxAttempts int

	attempts int
}

// NewUntilSuccess constructs an UntilSuccess wrapping child, giving up
// after maxAttempts failed attempts (maxAttempts <= 0 means unlimited).
func NewUntilSuccess(name string, maxAttempts int, child Node) *UntilSuccess {
	u := &UntilSuccess{child: child, maxAttempts: maxAttempts}
	u.Base = NewBase(name)
	return u
}

// Children returns the decorator's single child.
func (u *UntilSuccess) Children() []Node { return []Node{u.child} }

// Tick implements Node.
func (u *UntilSuccess) Tick(tc *core.TickContext) core.Status {
	status := u.child.Tick(tc)
	switch status {
	case core.SUCCESS:
		u.Reset()
		return u.RecordStatus(tc, core.SUCCESS)
	case core.RUNNING:
		return u.RecordStatus(tc, core.RUNNING)
	default: // FAILURE
		u.child.Reset()
		u.Lock()
		u.attempts++
		exhausted := u.maxAttempts > 0 && u.attempts >= u.maxAttempts
		u.Unlock()
		if exhausted {
			u.Reset()
			return u.RecordStatus(tc, core.FAILURE)
		}
		return u.RecordStatus(tc, core.RUNNING)
	}
}

// Reset clears the attempt counter and resets the wrapped child.
func (u *UntilSuccess) Reset() {
	u.Lock()
	u.attempts = 0
	u.Unlock()
	u.ResetStatus()
	u.child.Reset()
}
