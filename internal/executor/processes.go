package executor

import (
	"context"
	"fmt"

	"github.com/vk/stagerun/internal/procwire"
	"github.com/vk/stagerun/internal/task"
)

// inflight pairs a dispatched task with the future its worker reply arrives on.
type inflight struct {
	t   *task.Task
	fut *procwire.Future
}

// processDispatcher ships a stage's resolved invocations to a pool of worker
// processes. State transitions stay in this process: the parent resolves
// arguments (parents completed here, so results are local), the worker runs
// the registered callable, and the reply is recorded on the task. Barrier
// and error semantics match the threaded strategy: every dispatched task
// drains before the first failure is reported.
type processDispatcher struct {
	pool *procwire.Pool
}

func (d *processDispatcher) dispatch(ctx context.Context, stage []*task.Task) error {
	var first error
	fail := func(t *task.Task, err error) {
		t.Finish(nil, err)
		if first == nil {
			first = err
		}
	}

	pending := make([]inflight, 0, len(stage))
	for _, t := range stage {
		if err := t.Begin(); err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		if t.Callable() == "" {
			fail(t, fmt.Errorf("task %q (id %d) has no registered callable and cannot cross the process boundary", t.Name(), t.ID()))
			continue
		}
		args, kwargs, err := t.ResolveArgs()
		if err != nil {
			fail(t, err)
			continue
		}
		fut, err := d.pool.Submit(ctx, procwire.Job{
			ID:       t.ID(),
			Callable: t.Callable(),
			Args:     args,
			Kwargs:   kwargs,
		})
		if err != nil {
			fail(t, err)
			continue
		}
		pending = append(pending, inflight{t: t, fut: fut})
	}

	for _, p := range pending {
		value, err := p.fut.Wait(ctx)
		p.t.Finish(value, err)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (d *processDispatcher) close() {
	d.pool.Close()
}
