package errors

// ErrorClassification tells a caller whether repeating the operation may succeed.
type ErrorClassification string

const (
	// ClassificationRetryable marks transient failures.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that will repeat without a change in input.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable reports whether the classification is retryable.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeFetchTimeout: ClassificationRetryable,
	CodeFetchFailed:  ClassificationRetryable,
	CodeNetwork:      ClassificationRetryable,
	CodeTimeout:      ClassificationRetryable,

	// A corrupted entry is refetched, so the next attempt starts clean.
	CodeCacheCorrupted: ClassificationRetryable,

	CodeInvalidURL:           ClassificationPermanent,
	CodeCommitMismatch:       ClassificationPermanent,
	CodeFilterMatchesNothing: ClassificationPermanent,
	CodeExtractIO:            ClassificationPermanent,
	CodeNotFound:             ClassificationPermanent,
	CodeConflict:             ClassificationPermanent,
	CodeUnauthorized:         ClassificationPermanent,
	CodeInvalidInput:         ClassificationPermanent,
	CodeInvalidConfig:        ClassificationPermanent,
	CodeExecutionFailed:      ClassificationPermanent,
	CodeInternal:             ClassificationPermanent,
	CodeUnknown:              ClassificationPermanent,
}

func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
