package health

import "errors"

var (
	// ErrCheckFailed wraps the failures listed by Report.Err.
	ErrCheckFailed = errors.New("health: check failed")
	// ErrCheckTimeout is recorded for a check still running at the deadline.
	ErrCheckTimeout = errors.New("health: check timed out")
	// ErrNilCheck is recorded for a nil CheckFunc.
	ErrNilCheck = errors.New("health: nil check")
)
