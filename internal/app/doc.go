// Package app wires the application together: logger, callable registry,
// workflow loading and the run lifecycle. It is the consumer of the core's
// run and inspection APIs; the scheduling logic itself lives in the graph
// and executor packages.
package app
