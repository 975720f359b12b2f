package node

import "github.com/xiongwc/abtree/core"

// UntilFailure is UntilSuccess with SUCCESS and FAILURE swapped: it retries
// its child (resetting it first) on every SUCCESS, and completes with
// SUCCESS once the child finally returns FAILURE, or once MaxAttempts
// successful attempts have passed without a failure.
type UntilFailure struct {
	Base
	child       Node
	maxAttempts int

	attempts int
}

// NewUntilFailure constructs an UntilFailure wrapping child, giving up
// after maxAttempts successful attempts (maxAttempts <= 0 means unlimited).
func NewUntilFailure(name string, maxAttempts int, child Node) *UntilFailure {
	u := &UntilFailure{child: child, maxAttempts: maxAttempts}
	u.Base = NewBase(name)
	return u
}

// Children returns the decorator's single child.
func (u *UntilFailure) Children() []Node { return []Node{u.child} }

// Tick implements Node.
func (u *UntilFailure) Tick(tc *core.TickContext) core.Status {
	status := u.child.Tick(tc)
	switch status {
	case core.FAILURE:
		u.Reset()
		return u.RecordStatus(tc, core.SUCCESS)
	case core.RUNNING:
		return u.RecordStatus(tc, core.RUNNING)
	default: // SUCCESS
		u.child.Reset()
		u.Lock()
		u.attempts++
		exhausted := u.maxAttempts > 0 && u.attempts >= u.maxAttempts
		u.Unlock()
		if exhausted {
			u.Reset()
			return u.RecordStatus(tc, core.SUCCESS)
		}
		return u.RecordStatus(tc, core.RUNNING)
	}
}

// Reset clears the attempt counter and resets the wrapped child.
func (u *UntilFailure) Reset() {
	u.Lock()
	u.attempts = 0
	u.Unlock()
	u.ResetStatus()
	u.child.Reset()
}
