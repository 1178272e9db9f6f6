package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeBuffer guards the log sink against the concurrent strategies' writers.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeWorkflow(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runApp(t *testing.T, cfg Config) (*safeBuffer, error) {
	t.Helper()
	config, err := NewConfig(cfg)
	require.NoError(t, err)
	out := &safeBuffer{}
	a := NewApp(out, config)
	return out, a.Run(context.Background(), config)
}

const diamondWorkflow = `
task "left" {
  call = "math.add"
  args = [1, 2]
}

task "right" {
  call = "math.add"
  args = [3, 4]
}

task "total" {
  call = "math.sum"
  args = [task.left, task.right]
}

task "report" {
  call   = "text.join"
  args   = ["total", task.total]
  kwargs = { sep = "=" }
}
`

func TestAppRun(t *testing.T) {
	// The processes strategy would re-exec the test binary, so the
	// end-to-end cases cover the in-process strategies only; the process
	// path is exercised in the executor tests over an in-memory pipe.
	for _, strategy := range []string{"sequential", "threaded", "cooperative"} {
		t.Run(strategy, func(t *testing.T) {
			path := writeWorkflow(t, diamondWorkflow)
			out, err := runApp(t, Config{
				WorkflowPath: path,
				Strategy:     strategy,
				WorkerCount:  2,
				LogFormat:    "text",
				LogLevel:     "info",
			})
			require.NoError(t, err)
			logs := out.String()
			assert.Contains(t, logs, "Workflow run finished.")
			assert.Contains(t, logs, "total=10")
			assert.Contains(t, logs, "completed=4")
		})
	}
}

func TestAppRunFailure(t *testing.T) {
	path := writeWorkflow(t, `
task "shout" {
  call = "text.upper"
  args = [42]
}

task "after" {
  call = "text.concat"
  args = [task.shout]
}
`)
	out, err := runApp(t, Config{
		WorkflowPath: path,
		LogFormat:    "text",
		LogLevel:     "info",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text.upper wants a string")

	logs := out.String()
	assert.Contains(t, logs, "Workflow run failed.")
	assert.Contains(t, logs, "state=failed")
	assert.Contains(t, logs, "state=cancelled")
}

func TestAppRunStrategyPrecedence(t *testing.T) {
	// The config's strategy overrides the workflow block's.
	path := writeWorkflow(t, `
workflow {
  strategy = "threaded"
  workers  = 2
}

task "a" {
  call = "math.add"
  args = [1, 1]
}
`)
	out, err := runApp(t, Config{
		WorkflowPath: path,
		Strategy:     "sequential",
		LogFormat:    "text",
		LogLevel:     "info",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "strategy=sequential")
}

func TestAppRunWorkflowDefaults(t *testing.T) {
	// With no strategy anywhere the run falls back to sequential; the
	// workflow block's setting wins over that default.
	path := writeWorkflow(t, `
workflow {
  strategy = "cooperative"
}

task "a" {
  call = "math.add"
  args = [1, 1]
}
`)
	out, err := runApp(t, Config{
		WorkflowPath: path,
		LogFormat:    "text",
		LogLevel:     "info",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "strategy=cooperative")
}

func TestAppRunEmptyWorkflow(t *testing.T) {
	path := writeWorkflow(t, `
workflow {
  strategy = "threaded"
}
`)
	out, err := runApp(t, Config{
		WorkflowPath: path,
		LogFormat:    "text",
		LogLevel:     "info",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "nothing to run")
}

func TestAppRunLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, Config{
			WorkflowPath: filepath.Join(t.TempDir(), "absent.hcl"),
			LogFormat:    "text",
			LogLevel:     "info",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load workflow")
	})

	t.Run("unknown strategy name", func(t *testing.T) {
		path := writeWorkflow(t, `
task "a" {
  call = "math.add"
  args = [1, 1]
}
`)
		_, err := runApp(t, Config{
			WorkflowPath: path,
			Strategy:     "quantum",
			LogFormat:    "text",
			LogLevel:     "info",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown execution strategy "quantum"`)
	})
}

func TestNewConfigRequiresPath(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkflowPath")
}
