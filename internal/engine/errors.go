package engine

import "errors"

// Domain errors for the engine package.
var (
	// ErrQueueClosed is returned when enqueueing after the engine has stopped.
	ErrQueueClosed = errors.New("engine: queue closed")

	// ErrShuttingDown completes commands still queued when the engine stops.
	ErrShuttingDown = errors.New("engine shutting down")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrRequestPanicked wraps a panic recovered from a request.
	ErrRequestPanicked = errors.New("engine: request panicked")

	// ErrMissingParam is returned when a required command parameter is absent.
	ErrMissingParam = errors.New("missing parameter")
)
