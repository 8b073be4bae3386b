package exec

import (
	"context"
	"time"
)

// CommandWrapper prepends a fixed command name to every Run, so call sites
// read like the tool they drive (git.Run("fetch", ...)).
type CommandWrapper struct {
	executor Executor
	cmd      string
}

// NewWrapper returns a CommandWrapper running cmd through executor.
func NewWrapper(executor Executor, cmd string) *CommandWrapper {
	return &CommandWrapper{executor: executor, cmd: cmd}
}

// WithEnv sets environment variables for the next run.
func (w *CommandWrapper) WithEnv(env map[string]string) Executor {
	w.executor = w.executor.WithEnv(env)
	return w
}

// WithDir sets the working directory for the next run.
func (w *CommandWrapper) WithDir(dir string) Executor {
	w.executor = w.executor.WithDir(dir)
	return w
}

// WithContext sets the context for the next run.
func (w *CommandWrapper) WithContext(ctx context.Context) Executor {
	w.executor = w.executor.WithContext(ctx)
	return w
}

// WithTimeout bounds the next run.
func (w *CommandWrapper) WithTimeout(timeout time.Duration) Executor {
	w.executor = w.executor.WithTimeout(timeout)
	return w
}

// Run executes the wrapped command with args appended.
func (w *CommandWrapper) Run(args ...string) (*Result, error) {
	return w.executor.Run(append([]string{w.cmd}, args...)...)
}

// Clone returns a wrapper around a clone of the underlying executor.
func (w *CommandWrapper) Clone() Executor {
	return &CommandWrapper{executor: w.executor.Clone(), cmd: w.cmd}
}
