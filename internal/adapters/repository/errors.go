package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidName  = errors.New("invalid data file name")
	ErrDecode       = errors.New("decode data file")
	ErrWrite        = errors.New("write data file")
	ErrHistory      = errors.New("history store")
)
