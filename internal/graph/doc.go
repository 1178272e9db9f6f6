// Package graph derives a leveled execution plan from a flat task set. It
// depends on tasks only as opaque nodes with identity and parent/child
// links; the executor consumes the resulting stages.
package graph
