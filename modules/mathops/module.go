// Package mathops provides arithmetic callables for workflows. All numeric
// inputs are coerced to float64, since values arriving through the workflow
// file or the process boundary may be int64 or float64.
package mathops

import (
	"context"
	"fmt"

	"github.com/vk/stagerun/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the arithmetic callables.
func (Module) Register(r *registry.Registry) {
	r.Register("math.add", Add)
	r.Register("math.mul", Mul)
	r.Register("math.sum", Sum)
}

// Add returns the sum of exactly two numeric arguments.
func Add(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("math.add wants 2 arguments, got %d", len(args))
	}
	a, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

// Mul returns the product of all numeric arguments.
func Mul(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	product := 1.0
	for _, arg := range args {
		f, err := toFloat(arg)
		if err != nil {
			return nil, err
		}
		product *= f
	}
	return product, nil
}

// Sum adds all arguments; a list argument contributes the sum of its
// elements, so results of upstream tasks can be passed either spread or
// grouped.
func Sum(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	total := 0.0
	for _, arg := range args {
		if list, ok := arg.([]any); ok {
			sub, err := Sum(ctx, list, nil)
			if err != nil {
				return nil, err
			}
			total += sub.(float64)
			continue
		}
		f, err := toFloat(arg)
		if err != nil {
			return nil, err
		}
		total += f
	}
	return total, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
