package task

import "fmt"

// Value is one element of a task's argument template. It is a closed union:
// a literal Go value, an ordered sequence, a keyed mapping, or a reference to
// another task's eventual result. Templates are walked recursively both when
// dependencies are wired at construction and when arguments are resolved at
// invocation, so the two traversals can never disagree about what counts as
// a dependency.
type Value interface {
	isValue()
}

// Literal wraps a plain Go value that is passed through unchanged.
type Literal struct {
	Val any
}

// List is an ordered sequence of template values. It resolves to a []any of
// the same length and order.
type List []Value

// Dict is a keyed mapping of template values. It resolves to a
// map[string]any with the same keys.
type Dict map[string]Value

// Ref names another task whose stored result is substituted at resolution time.
type Ref struct {
	Task *Task
}

func (Literal) isValue() {}
func (List) isValue()    {}
func (Dict) isValue()    {}
func (Ref) isValue()     {}

// Lit is shorthand for building a Literal.
func Lit(v any) Value { return Literal{Val: v} }

// Out is shorthand for building a Ref to t's result.
func Out(t *Task) Value { return Ref{Task: t} }

// walkRefs invokes fn for every task reference embedded in v.
func walkRefs(v Value, fn func(*Task)) {
	switch x := v.(type) {
	case Ref:
		if x.Task != nil {
			fn(x.Task)
		}
	case List:
		for _, el := range x {
			walkRefs(el, fn)
		}
	case Dict:
		for _, el := range x {
			walkRefs(el, fn)
		}
	}
}

// resolve substitutes every task reference in v with that task's stored
// result, preserving container shape. Referencing a task that has not
// completed is a scheduling bug in the caller and surfaces as an error.
func resolve(v Value) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Literal:
		return x.Val, nil
	case Ref:
		res, err := x.Task.Result()
		if err != nil {
			return nil, fmt.Errorf("resolving result of task %q (id %d): %w", x.Task.Name(), x.Task.ID(), err)
		}
		return res, nil
	case List:
		out := make([]any, len(x))
		for i, el := range x {
			r, err := resolve(el)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case Dict:
		out := make(map[string]any, len(x))
		for k, el := range x {
			r, err := resolve(el)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown template value type %T", v)
	}
}
