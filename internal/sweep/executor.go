package sweep

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// Invocation is a resolved command line.
type Invocation struct {
	Name string
	Args []string
	// Env is the full child environment. nil inherits the runner environment.
	Env []string
	Dir string
}

// String returns the command line quoted for a POSIX shell.
func (i Invocation) String() string {
	return shellquote.Join(append([]string{i.Name}, i.Args...)...)
}

// Executor starts an invocation and waits for it to exit.
//
// A process that ran and exited returns its exit code and a nil error, whatever the code. A non-nil error
// means the process could not be started or was interrupted through ctx.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (int, error)
}

// ExecExecutor runs invocations with os/exec. Nil streams default to the runner's own standard streams,
// which are handed to the child as is.
type ExecExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// KillGrace is the time left to the child between the interrupt sent on cancellation and the kill.
	// It also bounds how long streams are copied once the child exited. Zero kills right away.
	KillGrace time.Duration
}

// NewExecExecutor returns an ExecExecutor inheriting the runner's standard streams.
func NewExecExecutor(killGrace time.Duration) *ExecExecutor {
	return &ExecExecutor{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		KillGrace: killGrace,
	}
}

func (e *ExecExecutor) Execute(ctx context.Context, inv Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdin = e.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if e.KillGrace > 0 {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
		cmd.WaitDelay = e.KillGrace
	}

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cmd.ProcessState.ExitCode(), errors.Wrapf(ctxErr, "%s interrupted", inv.Name)
	}

	if err == nil {
		return 0, nil
	}

	// the child exited but something it started still holds a stream open.
	if errors.Is(err, exec.ErrWaitDelay) {
		return cmd.ProcessState.ExitCode(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, errors.Wrapf(err, "unable to run %s", inv.Name)
}

var _ Executor = (*ExecExecutor)(nil)
