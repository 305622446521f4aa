package engine

import "errors"

// Expected, recoverable failures surfaced to the caller as typed
// results. None of them leaves partial state behind: every engine
// operation runs as a single transaction.
var (
	// ErrAlreadyActive means the requester already holds an active
	// reservation; at most one is allowed at a time.
	ErrAlreadyActive = errors.New("user already has an active reservation")

	// ErrNoCapacity means the lot has no free spot at claim time.
	ErrNoCapacity = errors.New("no available spot in this lot")

	// ErrCapacityConflict means a shrink would remove an occupied spot.
	ErrCapacityConflict = errors.New("cannot reduce spots, some of the removed spots are occupied")

	// ErrHasOccupiedSpots means a lot delete is blocked by occupancy.
	ErrHasOccupiedSpots = errors.New("cannot delete lot with occupied spots")

	// ErrInvalidInput covers non-positive spot counts, negative prices
	// and other malformed parameters.
	ErrInvalidInput = errors.New("invalid input")
)
