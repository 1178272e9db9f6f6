package timeops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep(t *testing.T) {
	t.Run("sleeps and returns the milliseconds", func(t *testing.T) {
		got, err := Sleep(context.Background(), []any{int64(5)}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got)
	})

	t.Run("cancellation cuts the sleep short", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Sleep(ctx, []any{int64(60_000)}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := Sleep(context.Background(), nil, nil)
		require.Error(t, err)
	})
}

func TestNow(t *testing.T) {
	got, err := Now(context.Background(), nil, nil)
	require.NoError(t, err)
	_, parseErr := time.Parse(time.RFC3339, got.(string))
	assert.NoError(t, parseErr)
}
