package node

import "github.com/xiongwc/abtree/core"

// Repeater ticks its child repeatedly within a single Tick call, up to
// Count times, succeeding once Count repetitions have each returned
// SUCCESS. A child that returns RUNNING suspends the Repeater for this
// round; the next Tick call resumes the in-progress repetition (the
// iteration counter is preserved, the child's own internal state resumes
// itself). A child that returns FAILURE fails the Repeater immediately and
// resets the counter.
//
// A negative Count means "repeat forever"; to avoid blocking a single Tick
// call indefinitely, an unbounded Repeater performs one repetition per Tick
// call and returns RUNNING in between, rather than looping inside the call.
// A Count of exactly zero is the spec §8 boundary case: SUCCESS immediately,
// without ticking the child at all.
type Repeater struct {
	Base
	child Node
	count int

	iterations int
}

// NewRepeater constructs a Repeater wrapping child, succeeding after count
// successful repetitions (count < 0 means forever; count == 0 means succeed
// without ticking child at all).
func NewRepeater(name string, count int, child Node) *Repeater {
	r := &Repeater{child: child, count: count}
	r.Base = NewBase(name)
	return r
}

// Children returns the decorator's single child.
func (r *Repeater) Children() []Node { return []Node{r.child} }

// Tick implements Node.
func (r *Repeater) Tick(tc *core.TickContext) core.Status {
	if r.count == 0 {
		return r.RecordStatus(tc, core.SUCCESS)
	}
	unbounded := r.count < 0

	for {
		status := r.child.Tick(tc)
		switch status {
		case core.RUNNING:
			return r.RecordStatus(tc, core.RUNNING)
		case core.FAILURE:
			r.Reset()
			return r.RecordStatus(tc, core.FAILURE)
		}

		// SUCCESS.
		r.Lock()
		r.iterations++
		done := !unbounded && r.iterations >= r.count
		r.Unlock()
		r.child.Reset()

		if done {
			r.Reset()
			return r.RecordStatus(tc, core.SUCCESS)
		}
		if unbounded {
			return r.RecordStatus(tc, core.RUNNING)
		}
		// Bounded with repetitions remaining: re-tick the child within this
		// same call.
	}
}

// Reset clears the iteration counter and resets the wrapped child.
func (r *Repeater) Reset() {
	r.Lock()
	r.iterations = 0
	r.Unlock()
	r.ResetStatus()
	r.child.Reset()
}
