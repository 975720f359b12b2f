package node

import "github.com/xiongwc/abtree/core"

// Sequence ticks its children left to right, succeeding only once every
// child has succeeded. The first child to return FAILURE or RUNNING stops
// the round: on FAILURE the Sequence fails immediately (and resets,
// discarding progress); on RUNNING the Sequence itself returns RUNNING and
// remembers the index of the child that was still running, so the next
// Tick resumes at that child rather than re-ticking already-succeeded
// siblings.
type Sequence struct {
	Base
	children        []Node
	runningChildIdx int
}

// NewSequence constructs a Sequence over children, ticked in the given order.
func NewSequence(name string, children ...Node) *Sequence {
	s := &Sequence{children: children}
	s.Base = NewBase(name)
	return s
}

// Children returns the composite's children in tick order.
func (s *Sequence) Children() []Node { return s.children }

// Tick implements Node.
func (s *Sequence) Tick(tc *core.TickContext) core.Status {
	s.Lock()
	start := s.runningChildIdx
	s.Unlock()

	for i := start; i < len(s.children); i++ {
		status := s.children[i].Tick(tc)
		switch status {
		case core.SUCCESS:
			continue
		case core.FAILURE:
			s.Reset()
			return s.RecordStatus(tc, core.FAILURE)
		case core.RUNNING:
			s.Lock()
			s.runningChildIdx = i
			s.Unlock()
			return s.RecordStatus(tc, core.RUNNING)
		}
	}
	s.Reset()
	return s.RecordStatus(tc, core.SUCCESS)
}

// Reset clears the running-child index and recursively resets every child.
func (s *Sequence) Reset() {
	s.Lock()
	s.runningChildIdx = 0
	s.Unlock()
	s.ResetStatus()
	for _, c := range s.children {
		c.Reset()
	}
}
