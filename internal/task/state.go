package task

// State represents the execution state of a task.
type State int32

const (
	// Pending indicates the task has been constructed but not yet dispatched.
	Pending State = iota
	// Running indicates the task is currently being executed.
	Running
	// Completed indicates the task finished successfully and its result is stored.
	Completed
	// Failed indicates the task's callable returned an error.
	Failed
	// Cancelled indicates the task was never dispatched because an earlier
	// failure aborted the run.
	Cancelled
)

// String returns the lower-case human-readable name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one a task can never leave.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}
