package executor

import (
	"context"
	"sync"

	"github.com/vk/stagerun/internal/task"
)

// coopJob is one offloaded invocation plus the future its outcome arrives on.
type coopJob struct {
	run  func() error
	done chan error
}

// coopDispatcher models the event-loop strategy: dispatch runs on a single
// logical control goroutine that offloads each task invocation to a bounded
// pool of workers and then suspends on the collected futures until the whole
// stage has finished. Suspension happens only at the stage barrier; no task
// observes interleaving of another task's internal steps.
type coopDispatcher struct {
	jobs chan coopJob
	wg   sync.WaitGroup
}

func newCoopDispatcher(workers int) *coopDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &coopDispatcher{jobs: make(chan coopJob)}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				j.done <- j.run()
			}
		}()
	}
	return d
}

func (d *coopDispatcher) dispatch(ctx context.Context, stage []*task.Task) error {
	futures := make([]chan error, 0, len(stage))
	for _, t := range stage {
		done := make(chan error, 1)
		d.jobs <- coopJob{
			run:  func() error { return t.Invoke(ctx) },
			done: done,
		}
		futures = append(futures, done)
	}

	var first error
	for _, done := range futures {
		if err := <-done; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (d *coopDispatcher) close() {
	close(d.jobs)
	d.wg.Wait()
}
