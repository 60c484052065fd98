package misconduct

import "errors"

// Sentinel kinds for misconduct errors.
var (
	ErrDecode = errors.New("misconduct data malformed")
)
