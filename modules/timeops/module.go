// Package timeops provides time-related callables for workflows, chiefly
// the simulated-I/O sleep used by example workflows.
package timeops

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/stagerun/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the time callables.
func (Module) Register(r *registry.Registry) {
	r.Register("time.sleep", Sleep)
	r.Register("time.now", Now)
}

// Sleep blocks for args[0] milliseconds (or until ctx is done) and returns
// the milliseconds slept.
func Sleep(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("time.sleep wants 1 argument, got %d", len(args))
	}
	ms, err := toMillis(args[0])
	if err != nil {
		return nil, err
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return ms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Now returns the current wall-clock time in RFC 3339 format.
func Now(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return time.Now().Format(time.RFC3339), nil
}

func toMillis(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected milliseconds as a number, got %T", v)
	}
}
