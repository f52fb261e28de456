package command

import "errors"

// Domain errors for the command package.
var (
	// ErrDuplicateOperation is returned when an operation name is registered twice.
	ErrDuplicateOperation = errors.New("command: duplicate operation")

	// ErrUnknownOperation is returned when no factory is bound to a name.
	ErrUnknownOperation = errors.New("command: unknown operation")

	// ErrInvalidOperation is returned for empty names, names containing '/', or nil factories.
	ErrInvalidOperation = errors.New("command: invalid operation")

	// ErrRegistrySealed is returned when registering after startup has finished.
	ErrRegistrySealed = errors.New("command: registry sealed")

	// ErrAlreadyCompleted is returned when a command is completed a second time.
	ErrAlreadyCompleted = errors.New("command: already completed")

	// ErrAbandoned is returned when completing a command nobody waits for any more.
	// The result has been discarded.
	ErrAbandoned = errors.New("command: abandoned")

	// ErrInvalidParam is returned when a parameter cannot be converted.
	ErrInvalidParam = errors.New("command: invalid parameter")
)
