package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrNotRunning is returned when tasks are submitted to a stopped pool.
	ErrNotRunning = errors.New("worker pool is not running")

	// ErrAlreadyRunning is returned when Start is called on a running pool.
	ErrAlreadyRunning = errors.New("worker pool is already running")
)
