package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrAlreadyRunning is returned by RunOnce while a pass is in flight
	ErrAlreadyRunning = errors.New("tenant pass already in progress")
)
