package node

import (
	"sync"

	"github.com/xiongwc/abtree/core"
)

// Parallel ticks every child concurrently each round and folds their
// statuses into one overall Status according to Policy. A child that
// reaches a terminal status (SUCCESS or FAILURE) is latched: it is not
// ticked again on subsequent rounds until the Parallel itself resolves and
// resets, mirroring agent.ParallelAgent's WaitGroup fan-out generalized
// with per-child memory so a child with side effects (a leaf that sends a
// message, say) does not repeat them every round while siblings are still
// RUNNING.
type Parallel struct {
	Base
	children []Node
	policy   core.Policy

	done   []bool
	result []core.Status
}

// NewParallel constructs a Parallel over children with the given fold policy.
func NewParallel(name string, policy core.Policy, children ...Node) *Parallel {
	p := &Parallel{children: children, policy: policy}
	p.Base = NewBase(name)
	p.done = make([]bool, len(children))
	p.result = make([]core.Status, len(children))
	return p
}

// Children returns the composite's children.
func (p *Parallel) Children() []Node { return p.children }

// Tick implements Node.
func (p *Parallel) Tick(tc *core.TickContext) core.Status {
	p.Lock()
	done := make([]bool, len(p.done))
	copy(done, p.done)
	p.Unlock()

	var wg sync.WaitGroup
	results := make([]core.Status, len(p.children))
	for i, child := range p.children {
		if done[i] {
			p.Lock()
			results[i] = p.result[i]
			p.Unlock()
			continue
		}
		wg.Add(1)
		go func(i int, child Node) {
			defer wg.Done()
			results[i] = child.Tick(tc)
		}(i, child)
	}
	wg.Wait()

	p.Lock()
	successes, failures := 0, 0
	for i, status := range results {
		if status.Done() {
			p.done[i] = true
			p.result[i] = status
		}
		if p.result[i] == core.SUCCESS && p.done[i] {
			successes++
		}
		if p.result[i] == core.FAILURE && p.done[i] {
			failures++
		}
	}
	p.Unlock()

	switch p.policy {
	case core.RequireOne:
		if successes > 0 {
			p.Reset()
			return p.RecordStatus(tc, core.SUCCESS)
		}
		if failures == len(p.children) {
			p.Reset()
			return p.RecordStatus(tc, core.FAILURE)
		}
		return p.RecordStatus(tc, core.RUNNING)
	default: // RequireAll
		if failures > 0 {
			p.Reset()
			return p.RecordStatus(tc, core.FAILURE)
		}
		if successes == len(p.children) {
			p.Reset()
			return p.RecordStatus(tc, core.SUCCESS)
		}
		return p.RecordStatus(tc, core.RUNNING)
	}
}

// Reset clears every child's latched status and recursively resets it.
func (p *Parallel) Reset() {
	p.Lock()
	for i := range p.done {
		p.done[i] = false
		p.result[i] = core.RUNNING
	}
	p.Unlock()
	p.ResetStatus()
	for _, c := range p.children {
		c.Reset()
	}
}
