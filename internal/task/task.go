package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

// ErrNotComputed is returned by Result before a task has completed.
var ErrNotComputed = errors.New("task result not computed")

// Func is the signature of a task's callable. Positional arguments arrive in
// template order with every task reference already replaced by the
// referenced task's result; keyword arguments likewise.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// notComputed is the distinguished marker occupying the result slot until a
// task completes successfully.
type notComputed struct{}

// Task is a named unit of work: a callable, its argument templates, and a
// once-only execution record (state, timing, result).
//
// A task's parent/child links are derived from its argument templates at
// construction and are immutable afterwards, except through Link. State,
// timing and result fields are each written at most once, by the goroutine
// (or worker process proxy) that executes the task; concurrent observers get
// eventually-consistent reads with no torn writes.
type Task struct {
	id       int64
	name     string
	fn       Func
	callable string
	args     List
	kwargs   Dict

	state       atomic.Int32
	startedAt   time.Time
	completedAt time.Time
	result      any
	err         error

	parents  map[int64]*Task
	children map[int64]*Task
}

// Factory constructs tasks and owns the id sequence. Ids are unique and
// monotonically increasing within one factory; assignment order is creation
// order.
type Factory struct {
	lastID atomic.Int64
}

// NewFactory returns a factory whose first task will get id 1.
func NewFactory() *Factory {
	return &Factory{}
}

// Option customizes a task at construction time.
type Option func(*Task)

// WithCallable records the registry name of the task's callable, marking the
// task transferable across a process boundary. Only tasks whose callable is
// a registered free-standing function may run under the processes strategy.
func WithCallable(name string) Option {
	return func(t *Task) {
		t.callable = name
	}
}

// New constructs a task in the Pending state and wires parent/child links by
// scanning the argument templates for task references. It fails only when fn
// is nil.
func (f *Factory) New(name string, fn Func, args List, kwargs Dict, opts ...Option) (*Task, error) {
	if fn == nil {
		return nil, fmt.Errorf("task %q: callable must not be nil", name)
	}

	t := &Task{
		id:       f.lastID.Add(1),
		name:     name,
		fn:       fn,
		args:     args,
		kwargs:   kwargs,
		result:   notComputed{},
		parents:  make(map[int64]*Task),
		children: make(map[int64]*Task),
	}
	t.state.Store(int32(Pending))

	for _, opt := range opts {
		opt(t)
	}

	walkRefs(t.args, func(p *Task) { Link(p, t) })
	walkRefs(t.kwargs, func(p *Task) { Link(p, t) })

	return t, nil
}

// Link records an explicit dependency edge: child will not be staged before
// parent. Argument references create these edges automatically; Link exists
// for dependencies that do not flow through a result (the workflow format's
// depends_on). It must not be called once the task set has been staged or
// run.
func Link(parent, child *Task) {
	if parent == nil || child == nil || parent == child {
		return
	}
	child.parents[parent.id] = parent
	parent.children[child.id] = child
}

// ID returns the task's process-unique id.
func (t *Task) ID() int64 { return t.id }

// Name returns the human-readable task name. Names need not be unique.
func (t *Task) Name() string { return t.name }

// Callable returns the registered name of the task's callable, or "" when
// the callable is an in-process closure.
func (t *Task) Callable() string { return t.callable }

// State returns the task's current execution state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// StartedAt returns the time the task transitioned to Running, or the zero
// time if it never started.
func (t *Task) StartedAt() time.Time { return t.startedAt }

// CompletedAt returns the time the task reached Completed or Failed, or the
// zero time if it never finished.
func (t *Task) CompletedAt() time.Time { return t.completedAt }

// Result returns the stored result. Before the task has completed it
// returns ErrNotComputed; the result slot is never overwritten on failure.
func (t *Task) Result() (any, error) {
	if t.State() != Completed {
		return nil, ErrNotComputed
	}
	return t.result, nil
}

// Err returns the error the callable failed with, or nil.
func (t *Task) Err() error { return t.err }

// Parents returns the tasks this task depends on, sorted by id.
func (t *Task) Parents() []*Task { return sortedTasks(t.parents) }

// Children returns the tasks that depend on this task, sorted by id.
func (t *Task) Children() []*Task { return sortedTasks(t.children) }

// ParentIDs returns the sorted id set of this task's parents.
func (t *Task) ParentIDs() []int64 { return sortedIDs(t.parents) }

// ChildIDs returns the sorted id set of this task's children.
func (t *Task) ChildIDs() []int64 { return sortedIDs(t.children) }

// Invoke runs the task in the calling goroutine: it transitions to Running,
// resolves the argument templates, invokes the callable, records the outcome
// and re-signals any callable error verbatim. A task is invoked at most
// once; invoking from any state but Pending is an error. Every parent must
// already be Completed; violating that is a scheduling bug in the caller,
// not a user-facing condition.
func (t *Task) Invoke(ctx context.Context) error {
	if err := t.Begin(); err != nil {
		return err
	}
	args, kwargs, err := t.ResolveArgs()
	if err != nil {
		t.Finish(nil, err)
		return err
	}
	res, err := t.fn(ctx, args, kwargs)
	t.Finish(res, err)
	return err
}

// Begin transitions the task from Pending to Running and records the start
// time. The executor calls it directly when the invocation itself happens
// elsewhere (in a worker process).
func (t *Task) Begin() error {
	if !t.state.CompareAndSwap(int32(Pending), int32(Running)) {
		return fmt.Errorf("task %q (id %d): cannot start from state %s", t.name, t.id, t.State())
	}
	t.startedAt = time.Now()
	return nil
}

// ResolveArgs materializes the positional and keyword argument templates,
// substituting every task reference with the referenced task's result and
// preserving container shape.
func (t *Task) ResolveArgs() ([]any, map[string]any, error) {
	args := make([]any, len(t.args))
	for i, v := range t.args {
		r, err := resolve(v)
		if err != nil {
			return nil, nil, err
		}
		args[i] = r
	}
	kwargs := make(map[string]any, len(t.kwargs))
	for k, v := range t.kwargs {
		r, err := resolve(v)
		if err != nil {
			return nil, nil, err
		}
		kwargs[k] = r
	}
	return args, kwargs, nil
}

// Finish records the outcome of an invocation started with Begin: on a nil
// error the task stores result and becomes Completed, otherwise it becomes
// Failed and keeps the not-computed marker. The completion time is recorded
// either way. Finish is a no-op unless the task is Running.
func (t *Task) Finish(result any, err error) {
	if err != nil {
		if t.state.CompareAndSwap(int32(Running), int32(Failed)) {
			t.err = err
			t.completedAt = time.Now()
		}
		return
	}
	if t.state.CompareAndSwap(int32(Running), int32(Completed)) {
		t.result = result
		t.completedAt = time.Now()
	}
}

// Cancel marks a never-dispatched task as Cancelled. It only succeeds from
// Pending, so calling it across a whole task set after an aborted run flips
// exactly the tasks that were never attempted.
func (t *Task) Cancel() bool {
	return t.state.CompareAndSwap(int32(Pending), int32(Cancelled))
}

func sortedTasks(set map[int64]*Task) []*Task {
	out := make([]*Task, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func sortedIDs(set map[int64]*Task) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
