package model

import "errors"

var (
	// ErrSourceUnavailable is returned when the info/profile fetch against the backend failed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDispatchItem marks a single item whose download could not be initiated.
	ErrDispatchItem = errors.New("dispatch item failure")

	// ErrBatchRunning is returned when a batch is started while another one is still running.
	ErrBatchRunning = errors.New("batch already running")

	// ErrInvalidInput is returned for malformed user input such as an empty or non-HTTP URL.
	ErrInvalidInput = errors.New("invalid input")

	// ErrItemNotFound is returned when an item ID is not part of the current session.
	ErrItemNotFound = errors.New("item not found")

	// ErrOutputLocked is returned when another process holds the output directory.
	ErrOutputLocked = errors.New("output directory is locked by another process")
)
