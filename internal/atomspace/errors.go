package atomspace

import "errors"

// Domain errors for the atomspace package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, atomspace.ErrAtomNotFound) {
//	    // unknown handle
//	}
var (
	// ErrAtomNotFound is returned when a handle does not exist.
	ErrAtomNotFound = errors.New("atom not found")

	// ErrAtomExists is returned by a repository when saving a handle twice.
	ErrAtomExists = errors.New("atomspace: atom already exists")

	// ErrInvalidAtom is returned when atom validation fails.
	ErrInvalidAtom = errors.New("atomspace: invalid atom")

	// ErrInvalidHandle is returned when a handle string cannot be parsed.
	ErrInvalidHandle = errors.New("atomspace: invalid handle")
)
