package tree

import (
	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/node"
)

// Validate checks root against spec §3's structural invariants before a
// BehaviorTree takes ownership of it: every node name is non-empty, no node
// is its own ancestor, and every decorator has exactly one child. Composite
// arity is deliberately not checked here (spec §3 allows zero children for
// a composite at construction time; an empty Sequence/Selector is a defined
// boundary behavior per spec §8, not an error).
func Validate(root node.Node) error {
	return validateNode(root, map[node.Node]bool{})
}

func validateNode(n node.Node, ancestors map[node.Node]bool) error {
	if n.Name() == "" {
		return abterr.New(abterr.InvalidTree, "", "node name must not be empty")
	}
	if ancestors[n] {
		return abterr.New(abterr.InvalidTree, n.Name(), "node is its own ancestor (cycle)")
	}

	children := childrenOf(n)
	if isDecorator(n) && len(children) != 1 {
		return abterr.New(abterr.InvalidTree, n.Name(), "decorator must have exactly one child")
	}

	next := make(map[node.Node]bool, len(ancestors)+1)
	for k := range ancestors {
		next[k] = true
	}
	next[n] = true

	for _, c := range children {
		if err := validateNode(c, next); err != nil {
			return err
		}
	}
	return nil
}

func childrenOf(n node.Node) []node.Node {
	if c, ok := n.(node.Children); ok {
		return c.Children()
	}
	return nil
}

// isDecorator reports whether n is one of the single-child decorator types.
// There is no shared marker interface for this in node/ (Children() alone
// doesn't distinguish "always exactly 1" from "0 or more"), so this switches
// over the concrete decorator types directly.
func isDecorator(n node.Node) bool {
	switch n.(type) {
	case *node.Inverter, *node.Repeater, *node.UntilSuccess, *node.UntilFailure:
		return true
	default:
		return false
	}
}
