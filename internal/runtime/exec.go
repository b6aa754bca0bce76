package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/logging"
)

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *zap.Logger
}

// Run starts cmd, streams its output to the configured writers while
// capturing it, and waits for completion.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Output, error) {
	log := logging.OrNop(r.Logger)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	if c.Quiet {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	} else {
		cmd.Stdout = io.MultiWriter(stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)
	}

	if c.Interactive {
		stdin := r.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		cmd.Stdin = stdin
		// A terminal program owns the screen; don't tee into buffers.
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		// Terminal signals reach the whole foreground group; the child
		// decides what they mean while it runs.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGQUIT)
		defer signal.Stop(sigs)
	}

	log.Debug("exec", zap.String("name", c.Name), zap.Strings("args", c.Args), zap.String("dir", c.Dir))

	err := cmd.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			output.ExitCode = exitErr.ExitCode()
			log.Debug("exec finished", zap.String("name", c.Name), zap.Int("exit_code", output.ExitCode))
			return output, nil
		}
		return output, fmt.Errorf("executing %s: %w", c.Name, err)
	}

	log.Debug("exec finished", zap.String("name", c.Name), zap.Int("exit_code", 0))
	return output, nil
}

// LookPath resolves name on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
