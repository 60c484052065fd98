package pipeline

import "errors"

// Sentinel kinds for pipeline errors.
var (
	ErrUnknownStage  = errors.New("unknown stage")
	ErrNotConfigured = errors.New("stage dependency not configured")
	ErrNoData        = errors.New("no upstream data fetched")
	ErrVerify        = errors.New("verification failed")
)
