package errors

import "errors"

var (
	ErrLockNotFound    = errors.New("lock not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrQueueNotFound   = errors.New("queue entry not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrClaimConflict means the conditional status update matched no
	// document: another request won the race or the lock left the
	// claimable state. Callers fall back to the queue.
	ErrClaimConflict = errors.New("lock claim conflict")

	ErrLockInactive = errors.New("lock is not active")

	ErrDateConflict = errors.New("requested dates conflict with an existing booking")

	ErrAlreadyQueued = errors.New("user already holds a queue position for this lock")

	ErrNotPendingVerification = errors.New("booking is not awaiting payment verification")

	ErrDeadlinePassed = errors.New("payment deadline has passed")
)
