package dispatch

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("dispatch: already started")

	// ErrNotStarted is returned when a scheduler is used before Start
	// or stopped while not running.
	ErrNotStarted = errors.New("dispatch: not started")

	// ErrStopped is returned when a task is scheduled after Stop.
	ErrStopped = errors.New("dispatch: stopped")

	// ErrInvalidDelay is returned for a negative delay.
	ErrInvalidDelay = errors.New("dispatch: invalid delay")

	// ErrPoolRequired is returned when a queue is created without a database pool.
	ErrPoolRequired = errors.New("dispatch: pool is required")

	// ErrInvalidPayload is returned when a stored task cannot be decoded.
	ErrInvalidPayload = errors.New("dispatch: invalid payload")

	// ErrDrainTimeout is returned by Stop when tasks were dropped.
	ErrDrainTimeout = errors.New("dispatch: drain timeout")

	// ErrHealthcheckFailed is returned when the scheduler health check fails.
	ErrHealthcheckFailed = errors.New("dispatch: healthcheck failed")
)
