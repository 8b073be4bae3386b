// Package errors provides the structured errors used across gitwire.
//
// Every failure the wiring engine reports carries an ErrorCode so callers can
// tell a remote that timed out from a filter that matched nothing without
// parsing messages. Errors stay compatible with the standard library
// (errors.Is, errors.As, errors.Unwrap).
//
// Creating and wrapping:
//
//	err := errors.New(errors.CodeInvalidURL, "repository URL is empty")
//
//	if err := cmd.Run(); err != nil {
//	    return errors.Wrap(err, errors.CodeFetchFailed, "git fetch failed")
//	}
//
// Attaching context:
//
//	err = errors.WithContext(err, "key", key.String())
//
// Inspecting:
//
//	if errors.GetCode(err) == errors.CodeCacheCorrupted {
//	    // refetch
//	}
package errors
