package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/stagerun/internal/ctxlog"
	"github.com/vk/stagerun/internal/registry"
	"github.com/vk/stagerun/internal/task"
)

// Workflow is the loaded form of a workflow file: the constructed task set
// plus the file's optional run settings.
type Workflow struct {
	Tasks  []*task.Task
	ByName map[string]*task.Task

	// Strategy and Workers come from the optional workflow block; zero
	// values mean the file did not set them.
	Strategy string
	Workers  int
}

// Loader translates workflow files into tasks. Each loader owns one task
// factory, so ids are unique across every file it loads.
type Loader struct {
	reg     *registry.Registry
	factory *task.Factory
}

// NewLoader creates a loader that resolves callables from reg.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{reg: reg, factory: task.NewFactory()}
}

var workflowSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
		{Type: "workflow"},
	},
}

var taskSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "call", Required: true},
		{Name: "args"},
		{Name: "kwargs"},
		{Name: "depends_on"},
	},
}

var settingsSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "strategy"},
		{Name: "workers"},
	},
}

// taskSpec is one task block, parsed but not yet constructed.
type taskSpec struct {
	name       string
	call       string
	argsExpr   hcl.Expression
	kwargsExpr hcl.Expression
	dependsOn  []string
	defRange   hcl.Range

	// wants holds every task name this spec references, implicitly or via
	// depends_on; specs are constructed in an order that satisfies it.
	wants []string
}

// LoadFile parses and constructs the workflow at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Workflow, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}
	return l.load(ctx, f)
}

// LoadSource parses and constructs a workflow from in-memory source,
// attributing diagnostics to filename.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*Workflow, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return l.load(ctx, f)
}

func (l *Loader) load(ctx context.Context, f *hcl.File) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	content, diags := f.Body.Content(workflowSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	wf := &Workflow{ByName: make(map[string]*task.Task)}
	specs := make([]*taskSpec, 0)
	seen := make(map[string]hcl.Range)
	var settingsBlock *hcl.Block

	for _, block := range content.Blocks {
		switch block.Type {
		case "task":
			spec, err := l.parseTaskBlock(block)
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[spec.name]; dup {
				return nil, fmt.Errorf("%s: duplicate task %q (first declared at %s)", block.DefRange, spec.name, prev)
			}
			seen[spec.name] = block.DefRange
			specs = append(specs, spec)
		case "workflow":
			if settingsBlock != nil {
				return nil, fmt.Errorf("%s: duplicate workflow block", block.DefRange)
			}
			settingsBlock = block
		}
	}
	logger.Debug("Workflow parsed.", "tasks", len(specs))

	if settingsBlock != nil {
		if err := l.parseSettings(settingsBlock, wf); err != nil {
			return nil, err
		}
	}

	// Every reference must name a declared task before construction starts.
	for _, spec := range specs {
		for _, want := range spec.wants {
			if _, ok := seen[want]; !ok {
				return nil, fmt.Errorf("%s: task %q references unknown task %q", spec.defRange, spec.name, want)
			}
		}
	}

	if err := l.construct(ctx, specs, wf); err != nil {
		return nil, err
	}

	logger.Debug("Workflow constructed.", "tasks", len(wf.Tasks))
	return wf, nil
}

// parseTaskBlock extracts one task block into a spec.
func (l *Loader) parseTaskBlock(block *hcl.Block) (*taskSpec, error) {
	content, diags := block.Body.Content(taskSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	spec := &taskSpec{
		name:     block.Labels[0],
		defRange: block.DefRange,
	}

	callAttr := content.Attributes["call"]
	callVal, diags := callAttr.Expr.Value(nil)
	if diags.HasErrors() || callVal.Type() != cty.String {
		return nil, fmt.Errorf("%s: call must be a constant string naming a registered callable", callAttr.Range)
	}
	spec.call = callVal.AsString()

	if attr, ok := content.Attributes["args"]; ok {
		spec.argsExpr = attr.Expr
		spec.wants = append(spec.wants, refNames(attr.Expr)...)
	}
	if attr, ok := content.Attributes["kwargs"]; ok {
		spec.kwargsExpr = attr.Expr
		spec.wants = append(spec.wants, refNames(attr.Expr)...)
	}
	if attr, ok := content.Attributes["depends_on"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !(val.Type().IsTupleType() || val.Type().IsListType()) {
			return nil, fmt.Errorf("%s: depends_on must be a constant list of task names", attr.Range)
		}
		it := val.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			if el.Type() != cty.String {
				return nil, fmt.Errorf("%s: depends_on entries must be strings", attr.Range)
			}
			spec.dependsOn = append(spec.dependsOn, el.AsString())
		}
		spec.wants = append(spec.wants, spec.dependsOn...)
	}

	return spec, nil
}

// parseSettings extracts the workflow block's run settings.
func (l *Loader) parseSettings(block *hcl.Block, wf *Workflow) error {
	content, diags := block.Body.Content(settingsSchema)
	if diags.HasErrors() {
		return diags
	}
	if attr, ok := content.Attributes["strategy"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.Type() != cty.String {
			return fmt.Errorf("%s: strategy must be a constant string", attr.Range)
		}
		wf.Strategy = val.AsString()
	}
	if attr, ok := content.Attributes["workers"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		var n int
		if err := gocty.FromCtyValue(val, &n); err != nil {
			return fmt.Errorf("%s: workers must be a number: %w", attr.Range, err)
		}
		wf.Workers = n
	}
	return nil
}

// construct builds tasks in dependency order: a spec is buildable once every
// task it references exists, because references become Refs holding the
// actual task. Specs that can never become buildable reference each other
// cyclically.
func (l *Loader) construct(ctx context.Context, specs []*taskSpec, wf *Workflow) error {
	logger := ctxlog.FromContext(ctx)
	remaining := specs

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]

		for _, spec := range remaining {
			if !l.buildable(spec, wf.ByName) {
				next = append(next, spec)
				continue
			}
			t, err := l.buildTask(spec, wf.ByName)
			if err != nil {
				return err
			}
			logger.Debug("Task constructed from workflow.", "task", spec.name, "id", t.ID(), "callable", spec.call)
			wf.ByName[spec.name] = t
			wf.Tasks = append(wf.Tasks, t)
			progress = true
		}

		if !progress {
			names := make([]string, len(next))
			for i, spec := range next {
				names[i] = spec.name
			}
			return fmt.Errorf("tasks %s reference each other cyclically", strings.Join(names, ", "))
		}
		remaining = next
	}
	return nil
}

func (l *Loader) buildable(spec *taskSpec, built map[string]*task.Task) bool {
	for _, want := range spec.wants {
		if _, ok := built[want]; !ok {
			return false
		}
	}
	return true
}

func (l *Loader) buildTask(spec *taskSpec, built map[string]*task.Task) (*task.Task, error) {
	fn, err := l.reg.Lookup(spec.call)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.defRange, err)
	}

	var args task.List
	if spec.argsExpr != nil {
		v, err := l.translateExpr(spec.argsExpr, built)
		if err != nil {
			return nil, err
		}
		list, ok := v.(task.List)
		if !ok {
			return nil, fmt.Errorf("%s: args must be a list", spec.argsExpr.Range())
		}
		args = list
	}

	var kwargs task.Dict
	if spec.kwargsExpr != nil {
		v, err := l.translateExpr(spec.kwargsExpr, built)
		if err != nil {
			return nil, err
		}
		dict, ok := v.(task.Dict)
		if !ok {
			return nil, fmt.Errorf("%s: kwargs must be an object", spec.kwargsExpr.Range())
		}
		kwargs = dict
	}

	t, err := l.factory.New(spec.name, fn, args, kwargs, task.WithCallable(spec.call))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.defRange, err)
	}

	for _, dep := range spec.dependsOn {
		task.Link(built[dep], t)
	}
	return t, nil
}
