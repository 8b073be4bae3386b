package exec

import (
	"context"
	"time"
)

//go:generate go run github.com/matryer/moq@latest -out mocks/executor.go -pkg mocks . Executor

// Executor runs a command with the given arguments.
//
// With* methods configure the next Run call and return the executor for
// chaining. An executor is not safe for concurrent use; Clone one per
// goroutine.
type Executor interface {
	// WithEnv sets environment variables for the next run.
	WithEnv(env map[string]string) Executor

	// WithDir sets the working directory for the next run.
	WithDir(dir string) Executor

	// WithContext sets the context for the next run. The process is killed
	// when the context is done.
	WithContext(ctx context.Context) Executor

	// WithTimeout bounds the next run.
	WithTimeout(timeout time.Duration) Executor

	// Run executes args[0] with args[1:].
	Run(args ...string) (*Result, error)

	// Clone returns an independent executor with the same global settings.
	Clone() Executor
}

// Result is the captured outcome of a run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Option configures global settings of a Command.
type Option func(*Command)

// WithEnv returns an Option that sets environment variables for every run.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		for k, v := range env {
			c.config.globalEnv[k] = v
		}
	}
}

// WithDir returns an Option that sets the default working directory.
func WithDir(dir string) Option {
	return func(c *Command) {
		c.config.globalDir = dir
	}
}

// WithInheritEnv returns an Option that passes the parent environment through.
func WithInheritEnv() Option {
	return func(c *Command) {
		c.config.inheritEnv = true
	}
}
