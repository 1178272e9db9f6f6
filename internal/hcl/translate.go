package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagerun/internal/task"
)

// parseTaskTraversal extracts the referenced task name from a `task.<name>`
// traversal. Any other traversal shape is not a task reference.
func parseTaskTraversal(tr hcl.Traversal) (string, bool) {
	if len(tr) != 2 || tr.RootName() != "task" {
		return "", false
	}
	attr, ok := tr[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}

// refNames returns the names of every task referenced by expr, in source
// order. These implicit dependencies decide construction order.
func refNames(expr hcl.Expression) []string {
	if expr == nil {
		return nil
	}
	var names []string
	for _, tr := range expr.Variables() {
		if name, ok := parseTaskTraversal(tr); ok {
			names = append(names, name)
		}
	}
	return names
}

// translateExpr turns one workflow expression into an argument template
// value. Task references become Refs, tuple and object constructors are
// decomposed element-wise so references can nest inside them, and anything
// else must evaluate as a constant.
func (l *Loader) translateExpr(expr hcl.Expression, built map[string]*task.Task) (task.Value, error) {
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if name, ok := parseTaskTraversal(e.Traversal); ok {
			t, found := built[name]
			if !found {
				return nil, fmt.Errorf("%s: reference to unknown task %q", expr.Range(), name)
			}
			return task.Out(t), nil
		}

	case *hclsyntax.TupleConsExpr:
		out := make(task.List, 0, len(e.Exprs))
		for _, sub := range e.Exprs {
			v, err := l.translateExpr(sub, built)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *hclsyntax.ObjectConsExpr:
		out := make(task.Dict, len(e.Items))
		for _, item := range e.Items {
			key := hcl.ExprAsKeyword(item.KeyExpr)
			if key == "" {
				kv, diags := item.KeyExpr.Value(nil)
				if diags.HasErrors() || kv.Type() != cty.String {
					return nil, fmt.Errorf("%s: object key must be a constant string", item.KeyExpr.Range())
				}
				key = kv.AsString()
			}
			v, err := l.translateExpr(item.ValueExpr, built)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: expression must be a constant or a task reference: %s", expr.Range(), diags.Error())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return task.Lit(native), nil
}
