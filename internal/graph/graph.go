package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/stagerun/internal/ctxlog"
	"github.com/vk/stagerun/internal/task"
)

// CyclicError reports that a task set contains at least one dependency
// cycle and therefore has no valid execution order. Tasks holds the tasks
// that could not be staged, sorted by id.
type CyclicError struct {
	Tasks []*task.Task
}

// Error implements the error interface.
func (e *CyclicError) Error() string {
	names := make([]string, len(e.Tasks))
	for i, t := range e.Tasks {
		names[i] = fmt.Sprintf("%s(id=%d)", t.Name(), t.ID())
	}
	return "cyclic dependency detected among tasks: " + strings.Join(names, ", ")
}

// Stage partitions a task set into a totally ordered sequence of stages. A
// task's stage index is one plus the maximum stage index of its parents (0
// if it has none), so every stage holds tasks with no dependency among them
// and levels are minimal. This is Kahn's algorithm producing levels rather
// than a single linear order.
//
// Only parents present in the submitted set count toward a task's in-degree;
// a dependency on a task outside the set is the caller's responsibility.
// Stage is pure: it mutates no task and staging the same set twice yields
// the same partition. Each stage is sorted by task id, but callers must not
// rely on intra-stage order.
func Stage(ctx context.Context, tasks []*task.Task) ([][]*task.Task, error) {
	logger := ctxlog.FromContext(ctx)

	inSet := make(map[int64]*task.Task, len(tasks))
	for _, t := range tasks {
		inSet[t.ID()] = t
	}

	indegree := make(map[int64]int, len(tasks))
	for _, t := range tasks {
		n := 0
		for _, p := range t.Parents() {
			if _, ok := inSet[p.ID()]; ok {
				n++
			}
		}
		indegree[t.ID()] = n
	}

	frontier := make([]*task.Task, 0)
	for _, t := range tasks {
		if indegree[t.ID()] == 0 {
			frontier = append(frontier, t)
		}
	}
	sortByID(frontier)

	var stages [][]*task.Task
	staged := 0
	for len(frontier) > 0 {
		stages = append(stages, frontier)
		staged += len(frontier)

		var next []*task.Task
		for _, t := range frontier {
			for _, child := range t.Children() {
				if _, ok := inSet[child.ID()]; !ok {
					continue
				}
				indegree[child.ID()]--
				if indegree[child.ID()] == 0 {
					next = append(next, child)
				}
			}
		}
		sortByID(next)
		frontier = next
	}

	if staged < len(tasks) {
		remaining := make([]*task.Task, 0, len(tasks)-staged)
		for _, t := range tasks {
			if indegree[t.ID()] > 0 {
				remaining = append(remaining, t)
			}
		}
		sortByID(remaining)
		err := &CyclicError{Tasks: remaining}
		logger.Debug("Staging failed, dependency structure is unsatisfiable.", "remaining", len(remaining))
		return nil, err
	}

	logger.Debug("Staging complete.", "tasks", len(tasks), "stages", len(stages))
	return stages, nil
}

func sortByID(ts []*task.Task) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID() < ts[j].ID() })
}
