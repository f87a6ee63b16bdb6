package claims

import "errors"

// Sentinel errors. Callers match with errors.Is; messages are wrapped with detail.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
