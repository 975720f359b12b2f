// Package core defines the primitives every node, tree, and forest in this
// module is built on: the Status/Policy enums, the Blackboard shared-state
// store, the EventBus publish/subscribe mechanism, and the TickContext
// bundled through a single Tick call.
package core
