package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vk/stagerun/internal/ctxlog"
	"github.com/vk/stagerun/internal/executor"
	"github.com/vk/stagerun/internal/hcl"
	"github.com/vk/stagerun/internal/task"
)

// Run loads the configured workflow, executes it under the selected
// strategy, and logs the post-run inspection summary. The run error, if
// any, is returned as the executor surfaced it.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	logger := a.logger.With("run_id", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	loader := hcl.NewLoader(a.registry)
	wf, err := loader.LoadFile(ctx, cfg.WorkflowPath)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	logger.Debug("Workflow loaded.", "path", cfg.WorkflowPath, "tasks", len(wf.Tasks))

	if len(wf.Tasks) == 0 {
		logger.Warn("No tasks found in workflow, nothing to run.")
		return nil
	}

	strategyName := cfg.Strategy
	if strategyName == "" {
		strategyName = wf.Strategy
	}
	if strategyName == "" {
		strategyName = "sequential"
	}
	strategy, err := executor.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	workers := cfg.WorkerCount
	if workers == 0 {
		workers = wf.Workers
	}

	exec := executor.New(executor.WithWorkers(workers))
	logger.Info("Starting workflow run.", "strategy", strategy.String(), "tasks", len(wf.Tasks))
	runErr := exec.Run(ctx, wf.Tasks, strategy)
	if runErr != nil {
		logger.Error("Workflow run failed.", "error", runErr)
	} else {
		logger.Info("Workflow run finished.")
	}

	a.logSummary(logger, wf.Tasks)
	return runErr
}

// logSummary emits the final state of every task, in id order, for post-run
// inspection: state, timing, result or error, and parent ids.
func (a *App) logSummary(logger *slog.Logger, tasks []*task.Task) {
	counts := make(map[task.State]int)
	for _, t := range tasks {
		counts[t.State()]++

		attrs := []any{
			"id", t.ID(),
			"task", t.Name(),
			"state", t.State().String(),
			"parents", t.ParentIDs(),
		}
		if !t.StartedAt().IsZero() && !t.CompletedAt().IsZero() {
			attrs = append(attrs, "duration", t.CompletedAt().Sub(t.StartedAt()).Round(time.Microsecond))
		}
		if res, err := t.Result(); err == nil {
			attrs = append(attrs, "result", res)
		}
		if t.Err() != nil {
			attrs = append(attrs, "error", t.Err())
		}
		logger.Info("Task summary.", attrs...)
	}

	logger.Info("Run summary.",
		"completed", counts[task.Completed],
		"failed", counts[task.Failed],
		"cancelled", counts[task.Cancelled],
		"pending", counts[task.Pending],
	)
}
