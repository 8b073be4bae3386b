package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCommandRun(t *testing.T) {
	result, err := New().Run("echo", "hello", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "hello world") {
		t.Errorf("expected stdout to contain 'hello world', got: %s", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got: %d", result.ExitCode)
	}
}

func TestCommandRunNoArgs(t *testing.T) {
	_, err := New().Run()
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got: %v", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("expected exit code -1, got: %d", execErr.ExitCode)
	}
}

func TestCommandFailureCapturesStderr(t *testing.T) {
	_, err := New().Run("sh", "-c", "echo oops >&2; exit 3")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got: %v", err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got: %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Stderr, "oops") {
		t.Errorf("expected stderr to contain 'oops', got: %s", execErr.Stderr)
	}
}

func TestCommandEnvAndDir(t *testing.T) {
	cmd := New(WithEnv(map[string]string{"GLOBAL_VAR": "global"}))

	result, err := cmd.WithEnv(map[string]string{"LOCAL_VAR": "local"}).Run("sh", "-c", "echo $GLOBAL_VAR-$LOCAL_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "global-local" {
		t.Errorf("expected 'global-local', got: %q", result.Stdout)
	}

	// local settings do not survive the run
	result, err = cmd.Run("sh", "-c", "echo $LOCAL_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "" {
		t.Errorf("expected local env to be reset, got: %q", result.Stdout)
	}

	dir := t.TempDir()
	result, err = cmd.WithDir(dir).Run("pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected stdout to contain %q, got: %s", dir, result.Stdout)
	}
}

func TestCommandTimeout(t *testing.T) {
	_, err := New().WithTimeout(50*time.Millisecond).Run("sleep", "5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
}

func TestCommandContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().WithContext(ctx).Run("sleep", "5")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := New(WithEnv(map[string]string{"A": "1"}))
	clone := base.Clone()

	base.WithDir("/nonexistent")
	result, err := clone.Run("sh", "-c", "echo $A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "1" {
		t.Errorf("expected clone to keep global env, got: %q", result.Stdout)
	}
}

func TestExecErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ExecError
		want string
	}{
		{
			name: "stderr tail",
			err:  &ExecError{Command: []string{"git", "fetch"}, ExitCode: 128, Stderr: "warning: x\nfatal: repository not found\n\n"},
			want: "git fetch: exit code 128 (fatal: repository not found)",
		},
		{
			name: "cause without output",
			err:  &ExecError{Command: []string{"git"}, ExitCode: -1, Err: context.DeadlineExceeded},
			want: "git: exit code -1: context deadline exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
