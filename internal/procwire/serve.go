package procwire

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/stagerun/internal/ctxlog"
	"github.com/vk/stagerun/internal/registry"
)

// EnvWorker is the environment variable that switches the binary into
// worker mode at startup.
const EnvWorker = "STAGERUN_WORKER"

// Serve runs the worker side of the protocol: it decodes jobs from r,
// invokes the named callable from reg, and encodes one reply per job onto w.
// It returns nil when the job stream is closed by the parent.
func Serve(ctx context.Context, r io.Reader, w io.Writer, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	dec := newDecoder(r)
	// Each reply is buffered and flushed as one write. Encoding straight to
	// the transport can emit a zero-length write (an empty string's payload),
	// which blocks forever on rendezvous transports like net.Pipe.
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)

	for {
		var job Job
		if err := dec.Decode(&job); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("Job stream closed, worker exiting.")
				return nil
			}
			return err
		}

		reply := Reply{ID: job.ID}
		fn, err := reg.Lookup(job.Callable)
		if err != nil {
			reply.Fault = err.Error()
		} else {
			logger.Debug("Worker invoking callable.", "job_id", job.ID, "callable", job.Callable)
			value, err := fn(ctx, job.Args, job.Kwargs)
			if err != nil {
				reply.Fault = err.Error()
			} else {
				reply.Value = value
			}
		}

		if err := enc.Encode(&reply); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}
