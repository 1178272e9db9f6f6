// Package executor runs a staged task set under one of four interchangeable
// concurrency strategies. Strategies differ only in how a stage's tasks are
// dispatched: stages always run in order with a barrier between them, and
// the first task failure aborts the run after in-flight same-stage work has
// drained.
package executor
