package executor

import (
	"context"

	"github.com/vk/stagerun/internal/task"
)

// serialDispatcher invokes a stage's tasks one at a time, in staging order.
// The first failure aborts before the rest of the stage is started, so
// unlike the concurrent strategies the remaining same-stage tasks never run.
type serialDispatcher struct{}

func (serialDispatcher) dispatch(ctx context.Context, stage []*task.Task) error {
	for _, t := range stage {
		if err := t.Invoke(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (serialDispatcher) close() {}
