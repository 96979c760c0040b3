package domain

import "errors"

var (
	ErrUnknownLabel   = errors.New("unknown label")
	ErrOutOfRange     = errors.New("value out of range")
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrSchemaMismatch = errors.New("model schema does not match form schema")
)

// ValidationError reports an invalid form value.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
