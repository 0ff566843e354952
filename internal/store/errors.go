package store

import "errors"

var (
	// ErrTableNotFound is returned when a table id is unknown.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound is returned when a row id is unknown in its table.
	ErrRowNotFound = errors.New("row not found")

	// ErrTableExists is returned by CreateTable for a taken id.
	ErrTableExists = errors.New("table already exists")

	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
)

// IsNotFound reports whether err is a missing table or row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrRowNotFound)
}

// IsInvalid reports whether err is an input validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsConflict reports whether err is a duplicate table id.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTableExists)
}
