package node

import "github.com/xiongwc/abtree/core"

// Inverter ticks its single child and swaps SUCCESS and FAILURE, passing
// RUNNING through unchanged.
type Inverter struct {
	Base
	child Node
}

// NewInverter constructs an Inverter wrapping child.
func NewInverter(name string, child Node) *Inverter {
	i := &Inverter{child: child}
	i.Base = NewBase(name)
	return i
}

// Children returns the decorator's single child.
func (i *Inverter) Children() []Node { return []Node{i.child} }

// Tick implements Node.
func (i *Inverter) Tick(tc *core.TickContext) core.Status {
	switch i.child.Tick(tc) {
	case core.SUCCESS:
		return i.RecordStatus(tc, core.FAILURE)
	case core.FAILURE:
		return i.RecordStatus(tc, core.SUCCESS)
	default:
		return i.RecordStatus(tc, core.RUNNING)
	}
}

// Reset resets the wrapped child.
func (i *Inverter) Reset() {
	i.ResetStatus()
	i.child.Reset()
}
