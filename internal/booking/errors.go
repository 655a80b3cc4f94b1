// internal/booking/errors.go
package booking

import (
	"errors"
)

// Sentinel errors returned by the engine. Callers map these to transport
// status codes; everything else is an internal error.
var (
	// ErrInvalidWindow means the requested window fails validation before
	// any store access: zero times, end not after start, or a duration
	// outside the allowed bounds.
	ErrInvalidWindow = errors.New("invalid booking window")

	// ErrSlotConflict means a confirmed booking already occupies part of
	// the requested window on the facility.
	ErrSlotConflict = errors.New("time slot is unavailable")

	// ErrStoreUnavailable wraps transient store failures (lock timeouts,
	// connection loss). The request may be retried; nothing was written.
	ErrStoreUnavailable = errors.New("booking store unavailable")

	// ErrNotFound means no booking matched the id within the league.
	ErrNotFound = errors.New("booking not found")

	// ErrFacilityNotFound means the facility does not exist in the league.
	ErrFacilityNotFound = errors.New("facility not found")

	// ErrNotConfirmed means a lifecycle transition was requested on a
	// booking that is not in the confirmed state.
	ErrNotConfirmed = errors.New("booking is not confirmed")

	// ErrCodeMismatch means the presented check-in code does not match
	// the booking's code.
	ErrCodeMismatch = errors.New("check-in code does not match")
)
