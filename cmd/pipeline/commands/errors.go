package commands

import "errors"

// Error constants
var (
	ErrBadChamber = errors.New("chamber must be senate, house or all")
	ErrNoHistory  = errors.New("history_db is not configured")
)
