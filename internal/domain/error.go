package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrVideoExpired       = errors.New("video has expired")
	ErrCheckoutInProgress = errors.New("another checkout is in progress for this phone and video")
	ErrOperationFailed    = errors.New("operation failed")

	// Storage-layer errors
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
