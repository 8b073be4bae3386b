package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	platformerrors "github.com/ab22593k/gitai/errors"
	"github.com/ab22593k/gitai/exec"
)

// wrapError wraps an error with context, classifying it as a platform error type.
// It preserves the original error chain for errors.Is/errors.As compatibility.
// If err is nil, returns nil.
func wrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, classifyError(err))
}

// classifyError maps go-git and context errors to platform error types.
// Unknown errors are passed through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return platformerrors.Wrap(err, platformerrors.CodeFetchTimeout, "operation timed out")
	case errors.Is(err, context.Canceled):
		return platformerrors.Wrap(err, platformerrors.CodeTimeout, "operation canceled")

	case errors.Is(err, gogit.ErrRepositoryNotExists):
		return platformerrors.New(platformerrors.CodeCacheCorrupted, "repository does not exist")
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return platformerrors.New(platformerrors.CodeFetchFailed, "repository not found")
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return platformerrors.New(platformerrors.CodeFetchFailed, "remote repository is empty")
	case errors.Is(err, transport.ErrAuthenticationRequired):
		return platformerrors.New(platformerrors.CodeFetchFailed, "authentication required")
	case errors.Is(err, transport.ErrAuthorizationFailed):
		return platformerrors.New(platformerrors.CodeFetchFailed, "authorization failed")
	case errors.Is(err, transport.ErrInvalidAuthMethod):
		return platformerrors.New(platformerrors.CodeFetchFailed, "invalid auth method")

	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return platformerrors.New(platformerrors.CodeNotFound, "reference not found")
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return platformerrors.New(platformerrors.CodeCommitMismatch, "object not found")

	case errors.Is(err, gogit.ErrMissingURL):
		return platformerrors.New(platformerrors.CodeInvalidURL, "URL is required")
	}

	return err
}

// stderrPatterns maps git CLI stderr fragments to error codes. Order matters:
// the first match wins.
var stderrPatterns = []struct {
	fragment string
	code     platformerrors.ErrorCode
	message  string
}{
	{"not our ref", platformerrors.CodeCommitMismatch, "commit not available on remote"},
	{"did not match any file(s) known to git", platformerrors.CodeCommitMismatch, "revision not found"},
	{"unknown revision", platformerrors.CodeCommitMismatch, "revision not found"},
	{"reference is not a tree", platformerrors.CodeCommitMismatch, "revision is not a commit"},
	{"couldn't find remote ref", platformerrors.CodeFetchFailed, "remote ref not found"},
	{"Repository not found", platformerrors.CodeFetchFailed, "repository not found"},
	{"does not appear to be a git repository", platformerrors.CodeFetchFailed, "repository not found"},
	{"Authentication failed", platformerrors.CodeFetchFailed, "authentication failed"},
	{"could not read Username", platformerrors.CodeFetchFailed, "authentication required"},
	{"Permission denied", platformerrors.CodeFetchFailed, "permission denied"},
	{"Could not resolve host", platformerrors.CodeFetchFailed, "host unreachable"},
	{"Connection refused", platformerrors.CodeFetchFailed, "connection refused"},
	{"Connection timed out", platformerrors.CodeFetchTimeout, "connection timed out"},
	{"unable to access", platformerrors.CodeFetchFailed, "remote unreachable"},
}

// mapExecError classifies a failed git CLI invocation by its stderr.
// Errors that are not *exec.ExecError are classified like go-git errors.
func mapExecError(err error, msg string, fallback platformerrors.ErrorCode) error {
	var execErr *exec.ExecError
	if !errors.As(err, &execErr) {
		return wrapError(err, msg)
	}

	switch {
	case errors.Is(execErr.Err, context.DeadlineExceeded):
		return platformerrors.Wrap(err, platformerrors.CodeFetchTimeout, msg)
	case errors.Is(execErr.Err, context.Canceled):
		return platformerrors.Wrap(err, platformerrors.CodeTimeout, msg)
	}

	stderr := strings.TrimSpace(execErr.Stderr)
	for _, p := range stderrPatterns {
		if strings.Contains(stderr, p.fragment) {
			return platformerrors.WithContext(
				platformerrors.Wrapf(err, p.code, "%s: %s", msg, p.message),
				"stderr", stderr,
			)
		}
	}

	return platformerrors.WithContext(platformerrors.Wrap(err, fallback, msg), "stderr", stderr)
}
