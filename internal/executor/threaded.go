package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vk/stagerun/internal/task"
)

// threadedDispatcher submits a stage's tasks to a bounded errgroup. Wait
// holds the barrier until every dispatched task has finished (a sibling
// failure never cancels in-flight work) and returns the first observed
// failure unwrapped.
type threadedDispatcher struct {
	limit int
}

func (d threadedDispatcher) dispatch(ctx context.Context, stage []*task.Task) error {
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, t := range stage {
		t := t
		g.Go(func() error {
			return t.Invoke(ctx)
		})
	}
	return g.Wait()
}

func (threadedDispatcher) close() {}
