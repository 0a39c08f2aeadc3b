package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Persistence plumbing
	ErrInvalidExecContext = errors.New("invalid execution context for repository call")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Queue and job lifecycle
	ErrJobNotCancellable   = errors.New("job is already in a terminal state")
	ErrInvalidTransition   = errors.New("invalid job status transition")
	ErrQueueClosed         = errors.New("translation queue is closed")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyPayload        = errors.New("nothing to translate")

	// Credits
	ErrAlreadyRefunded = errors.New("job credits already refunded")

	// Coordination
	ErrLockNotAcquired = errors.New("could not acquire lock")
	ErrRateLimited     = errors.New("rate limit exceeded")
)
