package mathops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("adds two numbers", func(t *testing.T) {
		got, err := Add(ctx, []any{int64(2), 3.5}, nil)
		require.NoError(t, err)
		assert.Equal(t, 5.5, got)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := Add(ctx, []any{int64(1)}, nil)
		assert.EqualError(t, err, "math.add wants 2 arguments, got 1")
	})

	t.Run("non-numeric argument", func(t *testing.T) {
		_, err := Add(ctx, []any{"one", int64(2)}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a number")
	})
}

func TestMul(t *testing.T) {
	ctx := context.Background()

	got, err := Mul(ctx, []any{int64(2), int64(3), 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = Mul(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestSum(t *testing.T) {
	ctx := context.Background()

	t.Run("flat arguments", func(t *testing.T) {
		got, err := Sum(ctx, []any{int64(1), int64(2), int64(3)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 6.0, got)
	})

	t.Run("list arguments are flattened", func(t *testing.T) {
		got, err := Sum(ctx, []any{int64(1), []any{int64(2), []any{int64(3)}}}, nil)
		require.NoError(t, err)
		assert.Equal(t, 6.0, got)
	})

	t.Run("non-numeric element fails", func(t *testing.T) {
		_, err := Sum(ctx, []any{[]any{"x"}}, nil)
		require.Error(t, err)
	})
}
