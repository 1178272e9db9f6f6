package procwire

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// SelfExec returns a SpawnFunc that re-executes the current binary with
// EnvWorker set, so the child enters worker mode before any CLI parsing.
// The worker's stdin/stdout carry the job protocol; stderr is passed
// through for its logs.
func SelfExec() SpawnFunc {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
		cmd := exec.CommandContext(ctx, exe)
		cmd.Env = append(os.Environ(), EnvWorker+"=1")
		cmd.Stderr = os.Stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting worker process: %w", err)
		}
		return &procConn{cmd: cmd, in: stdin, out: stdout}, nil
	}
}

// procConn adapts a worker subprocess's pipes to io.ReadWriteCloser.
type procConn struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser
}

func (c *procConn) Read(p []byte) (int, error)  { return c.out.Read(p) }
func (c *procConn) Write(p []byte) (int, error) { return c.in.Write(p) }

// Close ends the job stream and reaps the worker process.
func (c *procConn) Close() error {
	_ = c.in.Close()
	err := c.cmd.Wait()
	_ = c.out.Close()
	return err
}
