package domain

import "errors"

// Error kinds raised by the booking engine. Callers wrap them with a message
// (fmt.Errorf("%w: ...", ErrConflict)) and classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
)
