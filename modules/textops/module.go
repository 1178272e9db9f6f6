// Package textops provides string callables for workflows.
package textops

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/stagerun/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the string callables.
func (Module) Register(r *registry.Registry) {
	r.Register("text.concat", Concat)
	r.Register("text.upper", Upper)
	r.Register("text.join", Join)
}

// Concat stringifies and concatenates all arguments.
func Concat(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	var b strings.Builder
	for _, arg := range args {
		fmt.Fprint(&b, arg)
	}
	return b.String(), nil
}

// Upper upper-cases its single string argument.
func Upper(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("text.upper wants 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("text.upper wants a string, got %T", args[0])
	}
	return strings.ToUpper(s), nil
}

// Join stringifies all arguments and joins them with the "sep" keyword
// argument (default " ").
func Join(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	sep := " "
	if v, ok := kwargs["sep"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("text.join sep wants a string, got %T", v)
		}
		sep = s
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	return strings.Join(parts, sep), nil
}
