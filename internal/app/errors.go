package service

import "errors"

// Sentinel errors returned by the site service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownChamber = errors.New("unknown chamber")
	ErrInvalidState   = errors.New("invalid state code")
	ErrInvalidCompare = errors.New("compare needs between 2 and 4 distinct ids")
)
