package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retConst(v any) Func {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return v, nil
	}
}

func TestFactoryNew(t *testing.T) {
	f := NewFactory()

	t.Run("assigns monotonically increasing ids", func(t *testing.T) {
		a, err := f.New("a", retConst(1), nil, nil)
		require.NoError(t, err)
		b, err := f.New("b", retConst(2), nil, nil)
		require.NoError(t, err)

		assert.Greater(t, b.ID(), a.ID())
		assert.Equal(t, Pending, a.State())
		assert.Equal(t, "a", a.Name())
	})

	t.Run("rejects nil callable", func(t *testing.T) {
		_, err := f.New("broken", nil, nil, nil)
		require.Error(t, err)
		assert.ErrorContains(t, err, "callable must not be nil")
	})

	t.Run("result not computed before completion", func(t *testing.T) {
		a, err := f.New("a", retConst(1), nil, nil)
		require.NoError(t, err)

		_, err = a.Result()
		assert.ErrorIs(t, err, ErrNotComputed)
	})

	t.Run("records callable name", func(t *testing.T) {
		a, err := f.New("a", retConst(1), nil, nil, WithCallable("math.add"))
		require.NoError(t, err)
		assert.Equal(t, "math.add", a.Callable())

		b, err := f.New("b", retConst(1), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, b.Callable())
	})
}

func TestDependencyLinks(t *testing.T) {
	t.Run("positional reference wires both directions", func(t *testing.T) {
		f := NewFactory()
		parent, err := f.New("parent", retConst(1), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(2), List{Out(parent)}, nil)
		require.NoError(t, err)

		assert.Equal(t, []int64{parent.ID()}, child.ParentIDs())
		assert.Equal(t, []int64{child.ID()}, parent.ChildIDs())
	})

	t.Run("keyword reference wires both directions", func(t *testing.T) {
		f := NewFactory()
		parent, err := f.New("parent", retConst(1), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(2), nil, Dict{"input": Out(parent)})
		require.NoError(t, err)

		assert.Equal(t, []int64{parent.ID()}, child.ParentIDs())
	})

	t.Run("references inside nested containers are found", func(t *testing.T) {
		f := NewFactory()
		p1, err := f.New("p1", retConst(1), nil, nil)
		require.NoError(t, err)
		p2, err := f.New("p2", retConst(2), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(3),
			List{List{Out(p1), Lit(10)}},
			Dict{"cfg": Dict{"dep": Out(p2)}},
		)
		require.NoError(t, err)

		assert.ElementsMatch(t, []int64{p1.ID(), p2.ID()}, child.ParentIDs())
	})

	t.Run("duplicate references collapse to one edge", func(t *testing.T) {
		f := NewFactory()
		parent, err := f.New("parent", retConst(1), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(2), List{Out(parent), Out(parent)}, nil)
		require.NoError(t, err)

		assert.Len(t, child.ParentIDs(), 1)
		assert.Len(t, parent.ChildIDs(), 1)
	})

	t.Run("explicit Link adds an edge without a reference", func(t *testing.T) {
		f := NewFactory()
		parent, err := f.New("parent", retConst(1), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(2), nil, nil)
		require.NoError(t, err)

		Link(parent, child)
		assert.Equal(t, []int64{parent.ID()}, child.ParentIDs())

		// Self-links are ignored.
		Link(parent, parent)
		assert.Empty(t, parent.ParentIDs())
	})
}

func TestInvoke(t *testing.T) {
	t.Run("success records result, state and timing", func(t *testing.T) {
		f := NewFactory()
		a, err := f.New("a", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return 42, nil
		}, nil, nil)
		require.NoError(t, err)

		require.NoError(t, a.Invoke(context.Background()))

		assert.Equal(t, Completed, a.State())
		res, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, 42, res)
		assert.False(t, a.StartedAt().IsZero())
		assert.False(t, a.CompletedAt().IsZero())
		assert.False(t, a.CompletedAt().Before(a.StartedAt()))
	})

	t.Run("arguments resolve with container shape preserved", func(t *testing.T) {
		f := NewFactory()
		p1, err := f.New("p1", retConst(1), nil, nil)
		require.NoError(t, err)
		p2, err := f.New("p2", retConst(2), nil, nil)
		require.NoError(t, err)
		require.NoError(t, p1.Invoke(context.Background()))
		require.NoError(t, p2.Invoke(context.Background()))

		var gotArgs []any
		var gotKwargs map[string]any
		child, err := f.New("child", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			gotArgs = args
			gotKwargs = kwargs
			return nil, nil
		}, List{List{Out(p1), Out(p2)}, Lit("x")}, Dict{"deps": Dict{"first": Out(p1)}})
		require.NoError(t, err)

		require.NoError(t, child.Invoke(context.Background()))
		assert.Equal(t, []any{[]any{1, 2}, "x"}, gotArgs)
		assert.Equal(t, map[string]any{"deps": map[string]any{"first": 1}}, gotKwargs)
	})

	t.Run("failure re-signals the error verbatim and keeps result empty", func(t *testing.T) {
		f := NewFactory()
		boom := errors.New("boom")
		a, err := f.New("a", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return nil, boom
		}, nil, nil)
		require.NoError(t, err)

		err = a.Invoke(context.Background())
		assert.Same(t, boom, err)
		assert.Equal(t, Failed, a.State())
		assert.Same(t, boom, a.Err())
		assert.False(t, a.CompletedAt().IsZero())

		_, err = a.Result()
		assert.ErrorIs(t, err, ErrNotComputed)
	})

	t.Run("a task is invoked at most once", func(t *testing.T) {
		f := NewFactory()
		calls := 0
		a, err := f.New("a", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			calls++
			return calls, nil
		}, nil, nil)
		require.NoError(t, err)

		require.NoError(t, a.Invoke(context.Background()))
		err = a.Invoke(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "cannot start from state completed")
		assert.Equal(t, 1, calls)
	})

	t.Run("resolving an incomplete parent is an error", func(t *testing.T) {
		f := NewFactory()
		parent, err := f.New("parent", retConst(1), nil, nil)
		require.NoError(t, err)
		child, err := f.New("child", retConst(2), List{Out(parent)}, nil)
		require.NoError(t, err)

		err = child.Invoke(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotComputed)
		assert.Equal(t, Failed, child.State())
	})
}

func TestCancel(t *testing.T) {
	f := NewFactory()
	a, err := f.New("a", retConst(1), nil, nil)
	require.NoError(t, err)

	assert.True(t, a.Cancel())
	assert.Equal(t, Cancelled, a.State())
	assert.False(t, a.Cancel())

	b, err := f.New("b", retConst(2), nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.Invoke(context.Background()))
	assert.False(t, b.Cancel())
	assert.Equal(t, Completed, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "cancelled", Cancelled.String())

	assert.False(t, Pending.Terminal())
	assert.False(t, Running.Terminal())
	assert.True(t, Completed.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, Cancelled.Terminal())
}
