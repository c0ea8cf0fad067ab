package crank

import "errors"

var (
	// ErrInvalidConfig indicates a Config missing a required dependency.
	ErrInvalidConfig = errors.New("crank: invalid config")

	// ErrNotDue indicates the stream's next epoch has not opened yet.
	ErrNotDue = errors.New("crank: epoch not due")
)
