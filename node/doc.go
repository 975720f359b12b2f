// Package node defines the behavior-tree node hierarchy: the Node
// interface every node type implements, the leaf node types (Action,
// Condition, Log, Wait, SetBlackboard, CheckBlackboard, Compare), the
// composite types (Sequence, Selector, Parallel), and the decorator types
// (Inverter, Repeater, UntilSuccess, UntilFailure).
package node
