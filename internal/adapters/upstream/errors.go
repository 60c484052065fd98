package upstream

import "errors"

// Sentinel kinds for upstream errors.
var (
	ErrUpstream    = errors.New("upstream request failed")
	ErrRateLimited = errors.New("upstream rate limited")
	ErrNotFound    = errors.New("upstream resource not found")
	ErrDecode      = errors.New("upstream response malformed")
)
