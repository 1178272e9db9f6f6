// Package procwire implements the serialization boundary of the processes
// strategy: a msgpack job/reply protocol between the orchestrating process
// and a pool of worker subprocesses re-exec'd from the same binary. The
// parent resolves a task's arguments, ships the registered callable name
// plus resolved values to a worker, and records the returned result or
// fault on the task.
package procwire
