package wheel

import "errors"

var (
	// ErrEmptyPool means a spin was requested while no slot is occupied.
	ErrEmptyPool = errors.New("no items in wheel")
	// ErrInvalidInput wraps validation failures of settings or spin overrides.
	ErrInvalidInput = errors.New("invalid wheel input")
)
