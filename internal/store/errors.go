package store

import "github.com/bitcoinworld/arcade-server/internal/errors"

// Sentinel errors returned by every backend. Match them with errors.Is.
var (
	ErrNotFound           = errors.NotFound("resource not found")
	ErrAlreadyExists      = errors.Conflict("resource already exists")
	ErrInsufficientPoints = errors.InvalidInput("insufficient available points")
	ErrVersionConflict    = errors.Conflict("player changed since it was read")
)
