package procwire

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Job is one resolved task invocation crossing the process boundary. The
// callable is identified by its registry name; arguments must therefore be
// msgpack-serializable values, which is a constraint on callers selecting
// the processes strategy, not on the core.
type Job struct {
	ID       int64          `msgpack:"id"`
	Callable string         `msgpack:"callable"`
	Args     []any          `msgpack:"args"`
	Kwargs   map[string]any `msgpack:"kwargs"`
}

// Reply carries the outcome of a Job back to the parent process. Fault is
// the error message verbatim, or empty on success.
type Reply struct {
	ID    int64  `msgpack:"id"`
	Value any    `msgpack:"value"`
	Fault string `msgpack:"fault"`
}

// RemoteError preserves the message of an error raised by a callable inside
// a worker process. Error identity cannot cross a process boundary, so the
// content is carried instead.
type RemoteError struct {
	Msg string
}

// Error implements the error interface.
func (e *RemoteError) Error() string { return e.Msg }

// newDecoder builds a stream decoder that maps wire values onto the loose Go
// types (int64, float64, []any, map[string]any) callables are written
// against.
func newDecoder(r io.Reader) *msgpack.Decoder {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	return dec
}
