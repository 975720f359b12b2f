package node

import "github.com/xiongwc/abtree/core"

// Selector ticks its children left to right, succeeding as soon as one
// child succeeds. It fails only once every child has failed. Like
// Sequence, a child returning RUNNING suspends the round and is resumed
// from the same index on the next Tick.
type Selector struct {
	Base
	children        []Node
	runningChildIdx int
}

// NewSelector constructs a Selector over children, ticked in the given order.
func NewSelector(name string, children ...Node) *Selector {
	s := &Selector{children: children}
	s.Base = NewBase(name)
	return s
}

// Children returns the composite's children in tick order.
func (s *Selector) Children() []Node { return s.children }

// Tick implements Node.
func (s *Selector) Tick(tc *core.TickContext) core.Status {
	s.Lock()
	start := s.runningChildIdx
	s.Unlock()

	for i := start; i < len(s.children); i++ {
		status := s.children[i].Tick(tc)
		switch status {
		case core.FAILURE:
			continue
		case core.SUCCESS:
			s.Reset()
			return s.RecordStatus(tc, core.SUCCESS)
		case core.RUNNING:
			s.Lock()
			s.runningChildIdx = i
			s.Unlock()
			return s.RecordStatus(tc, core.RUNNING)
		}
	}
	s.Reset()
	return s.RecordStatus(tc, core.FAILURE)
}

// Reset clears the running-child index and recursively resets every child.
func (s *Selector) Reset() {
	s.Lock()
	s.runningChildIdx = 0
	s.Unlock()
	s.ResetStatus()
	for _, c := range s.children {
		c.Reset()
	}
}
