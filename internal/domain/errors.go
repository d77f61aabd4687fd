package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName indicates a persona name collision (case-insensitive)
	ErrDuplicateName = errors.New("name already exists")

	// ErrPersonaLimit indicates the configured persona cap was reached
	ErrPersonaLimit = errors.New("maximum number of personas reached")
)
