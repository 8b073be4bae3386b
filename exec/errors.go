package exec

import (
	"fmt"
	"strings"
)

// ExecError is returned by Run when the process could not start, exited
// non-zero, or was killed by its context. Output captured before the
// failure is kept.
type ExecError struct {
	Command  []string
	ExitCode int // -1 if the process never started
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: exit code %d", strings.Join(e.Command, " "), e.ExitCode)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if line := lastLine(e.Stderr); line != "" {
		fmt.Fprintf(&b, " (%s)", line)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// lastLine returns the last non-blank line of s, which for git is usually
// the fatal message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
