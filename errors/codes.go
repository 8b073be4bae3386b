package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Wiring errors.

	// CodeInvalidURL indicates a repository URL could not be parsed or uses an unsupported scheme.
	CodeInvalidURL ErrorCode = "INVALID_URL"

	// CodeFetchTimeout indicates a fetch exceeded the configured network timeout.
	CodeFetchTimeout ErrorCode = "FETCH_TIMEOUT"

	// CodeFetchFailed indicates a fetch failed (network, auth, remote or ref not found).
	CodeFetchFailed ErrorCode = "FETCH_FAILED"

	// CodeCommitMismatch indicates a pinned commit could not be resolved or did not match.
	CodeCommitMismatch ErrorCode = "COMMIT_MISMATCH"

	// CodeFilterMatchesNothing indicates a path filter matched no file in the checkout.
	CodeFilterMatchesNothing ErrorCode = "FILTER_MATCHES_NOTHING"

	// CodeExtractIO indicates the target path could not be written.
	CodeExtractIO ErrorCode = "EXTRACT_IO_ERROR"

	// CodeCacheCorrupted indicates an on-disk cache entry failed its consistency check.
	CodeCacheCorrupted ErrorCode = "CACHE_CORRUPTED"

	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates a resource state conflict that prevents the operation.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeUnauthorized indicates the remote rejected or required credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeExecutionFailed indicates an external command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
