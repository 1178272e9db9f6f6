package executor

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/vk/stagerun/internal/ctxlog"
	"github.com/vk/stagerun/internal/graph"
	"github.com/vk/stagerun/internal/procwire"
	"github.com/vk/stagerun/internal/task"
)

// Strategy selects the concurrency mechanism used to dispatch each stage.
// Staging, barriers and error semantics are identical across strategies.
type Strategy int

const (
	// Sequential invokes each task one at a time on the calling goroutine.
	Sequential Strategy = iota
	// Threaded dispatches a stage's tasks to a bounded in-process worker group.
	Threaded
	// Processes executes each task in an isolated worker process; callables
	// and their resolved arguments cross a serialization boundary.
	Processes
	// Cooperative keeps a single logical control thread that offloads each
	// invocation to a bounded worker pool and suspends only at stage barriers.
	Cooperative
)

// String returns the strategy's CLI-facing name.
func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Threaded:
		return "threaded"
	case Processes:
		return "processes"
	case Cooperative:
		return "cooperative"
	default:
		return "unknown"
	}
}

// UnknownStrategyError reports a strategy selection that names no known
// execution strategy. It is surfaced before staging.
type UnknownStrategyError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown execution strategy %q (want one of sequential, threaded, processes, cooperative)", e.Name)
}

// ParseStrategy maps a strategy name to its Strategy value.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "sequential":
		return Sequential, nil
	case "threaded":
		return Threaded, nil
	case "processes":
		return Processes, nil
	case "cooperative":
		return Cooperative, nil
	default:
		return 0, &UnknownStrategyError{Name: name}
	}
}

// stageDispatcher is the single contract all strategies satisfy: dispatch
// one stage, hold the barrier until every dispatched task has finished, and
// report the first observed failure.
type stageDispatcher interface {
	dispatch(ctx context.Context, stage []*task.Task) error
	close()
}

// Executor stages a task set and runs it stage by stage under a chosen
// strategy. Its only mutable shared resource is the worker pool a strategy
// may need, and that is acquired at the start of Run and released, after a
// wait for in-flight work, when Run returns.
type Executor struct {
	workers int
	spawn   procwire.SpawnFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the worker pools of the concurrent strategies. Values
// below one fall back to the default.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSpawn overrides how the processes strategy obtains worker transports.
// Tests use this to serve the protocol over an in-memory pipe.
func WithSpawn(spawn procwire.SpawnFunc) Option {
	return func(e *Executor) {
		e.spawn = spawn
	}
}

// New creates an executor. The default pool bound is the CPU count.
func New(opts ...Option) *Executor {
	e := &Executor{
		workers: runtime.NumCPU(),
		spawn:   procwire.SelfExec(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run stages the task set and executes every stage in order under the
// chosen strategy, waiting at a barrier between stages. The first failure
// aborts the run: the failing task's error is returned verbatim (a
// *procwire.RemoteError under the processes strategy), already-completed
// tasks keep their results, and tasks never dispatched are marked
// Cancelled. A cyclic task set fails with *graph.CyclicError before any
// callable is invoked.
func (e *Executor) Run(ctx context.Context, tasks []*task.Task, strategy Strategy) error {
	logger := ctxlog.FromContext(ctx)

	if strategy < Sequential || strategy > Cooperative {
		return &UnknownStrategyError{Name: strategy.String()}
	}

	stages, err := graph.Stage(ctx, tasks)
	if err != nil {
		return err
	}
	logger.Debug("Run staged.", "strategy", strategy.String(), "tasks", len(tasks), "stages", len(stages))

	d, err := e.newDispatcher(ctx, strategy)
	if err != nil {
		return err
	}
	defer d.close()

	for i, stage := range stages {
		logger.Debug("Dispatching stage.", "stage", i, "tasks", len(stage))
		if err := d.dispatch(ctx, stage); err != nil {
			cancelRemaining(tasks)
			logger.Debug("Run aborted on first failure.", "stage", i, "error", err)
			return err
		}
	}

	logger.Debug("Run finished.", "stages", len(stages))
	return nil
}

// newDispatcher builds the strategy's dispatcher, acquiring any pool it needs.
func (e *Executor) newDispatcher(ctx context.Context, strategy Strategy) (stageDispatcher, error) {
	switch strategy {
	case Sequential:
		return serialDispatcher{}, nil
	case Threaded:
		return threadedDispatcher{limit: e.workers}, nil
	case Processes:
		pool, err := procwire.StartPool(ctx, e.workers, e.spawn)
		if err != nil {
			return nil, fmt.Errorf("starting process pool: %w", err)
		}
		return &processDispatcher{pool: pool}, nil
	case Cooperative:
		return newCoopDispatcher(e.workers), nil
	default:
		return nil, &UnknownStrategyError{Name: strategy.String()}
	}
}

// cancelRemaining flips every never-dispatched task from Pending to
// Cancelled so the post-run snapshot distinguishes them from tasks that ran.
func cancelRemaining(tasks []*task.Task) {
	for _, t := range tasks {
		t.Cancel()
	}
}
