package storylens

import "errors"

// Sentinel errors shared across packages. Callers wrap them with context
// and the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidImage = errors.New("invalid image file")
	ErrNotFound     = errors.New("not found")
)
