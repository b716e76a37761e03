package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrSessionNotActive = errors.New("session is not active")
	ErrStepBlocked      = errors.New("step is blocked by unfinished earlier steps")
	ErrStepOutOfRange   = errors.New("step number out of range")
	ErrInvalidRecipe    = errors.New("invalid recipe")
)
