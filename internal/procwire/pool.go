package procwire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/stagerun/internal/ctxlog"
)

// SpawnFunc produces the transport to one fresh worker. The default is
// SelfExec; tests substitute an in-memory pipe served by Serve.
type SpawnFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// outcome is the resolved value or error of one submitted job.
type outcome struct {
	value any
	err   error
}

// Future is the parent-side handle of one in-flight job.
type Future struct {
	ch chan outcome
}

// Wait blocks until the job's reply arrives or ctx is done, and returns the
// remote value or error.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case o := <-f.ch:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call pairs a job with the channel its outcome is delivered on.
type call struct {
	job  Job
	done chan outcome
}

// Pool is a fixed-size pool of worker processes. Each worker owns one
// transport and handles one job at a time; jobs are pulled from a shared
// queue. The pool's lifetime is scoped to a single run: started at run
// start, closed (draining in-flight work) at run end.
type Pool struct {
	jobs  chan *call
	wg    sync.WaitGroup
	conns []io.ReadWriteCloser
}

// StartPool spawns size workers. On any spawn failure the workers started
// so far are torn down before the error is returned.
func StartPool(ctx context.Context, size int, spawn SpawnFunc) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker process pool.", "size", size)

	p := &Pool{jobs: make(chan *call)}
	for i := 0; i < size; i++ {
		conn, err := spawn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("spawning worker %d: %w", i, err)
		}
		p.conns = append(p.conns, conn)
		p.wg.Add(1)
		go p.serveConn(ctx, conn)
	}
	return p, nil
}

// Submit queues one job and returns its future. It blocks while every
// worker is busy and the queue handoff is pending.
func (p *Pool) Submit(ctx context.Context, job Job) (*Future, error) {
	done := make(chan outcome, 1)
	select {
	case p.jobs <- &call{job: job, done: done}:
		return &Future{ch: done}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the job queue, waits for in-flight jobs to drain, and closes
// every worker transport.
func (p *Pool) Close() {
	if p.jobs != nil {
		close(p.jobs)
		p.jobs = nil
	}
	p.wg.Wait()
	for _, conn := range p.conns {
		_ = conn.Close()
	}
	p.conns = nil
}

// serveConn is the parent-side loop for one worker: it forwards jobs over
// the transport and delivers replies to the matching future.
func (p *Pool) serveConn(ctx context.Context, conn io.ReadWriteCloser) {
	defer p.wg.Done()
	logger := ctxlog.FromContext(ctx)
	// Buffered like the worker side of Serve: one flush per job, so no
	// message ever ends on a zero-length transport write.
	bw := bufio.NewWriter(conn)
	enc := msgpack.NewEncoder(bw)
	dec := newDecoder(conn)

	send := func(job *Job) error {
		if err := enc.Encode(job); err != nil {
			return err
		}
		return bw.Flush()
	}

	for c := range p.jobs {
		if err := send(&c.job); err != nil {
			c.done <- outcome{err: fmt.Errorf("sending job %d to worker: %w", c.job.ID, err)}
			continue
		}
		var reply Reply
		if err := dec.Decode(&reply); err != nil {
			c.done <- outcome{err: fmt.Errorf("reading reply for job %d: %w", c.job.ID, err)}
			continue
		}
		logger.Debug("Worker reply received.", "job_id", reply.ID, "fault", reply.Fault != "")
		if reply.Fault != "" {
			c.done <- outcome{err: &RemoteError{Msg: reply.Fault}}
			continue
		}
		c.done <- outcome{value: reply.Value}
	}
}
