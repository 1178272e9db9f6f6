// Package task defines the unit of work the orchestrator schedules: a named
// callable plus positional/keyword argument templates in which any element
// may reference another task's not-yet-computed result. Those references
// are what express dependencies; the graph and executor packages consume a
// task purely as a node with identity and parent/child links.
package task
