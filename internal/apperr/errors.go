package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidImport is the single error every malformed import payload
	// collapses to. The message doubles as the user-facing string key.
	ErrInvalidImport = errors.New("invalidFile_description")
)
