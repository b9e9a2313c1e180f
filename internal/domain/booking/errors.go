package booking

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the package matches exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("time slot is not available")
	ErrInvalidState    = errors.New("invalid booking state")
	ErrInvalidInterval = errors.New("invalid time interval")
	ErrInfrastructure  = errors.New("storage failure")
)

var (
	ErrBookingNotFound   = fmt.Errorf("booking %w", ErrNotFound)
	ErrFieldNotFound     = fmt.Errorf("field %w", ErrNotFound)
	ErrVenueNotFound     = fmt.Errorf("venue %w", ErrNotFound)
	ErrFieldUnavailable  = fmt.Errorf("%w: field is not accepting bookings", ErrConflict)
	ErrAlreadyCancelled  = fmt.Errorf("%w: booking is already cancelled", ErrInvalidState)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrInvalidState)
	ErrUnknownStatus     = fmt.Errorf("%w: unknown status", ErrInvalidState)
	ErrStatusChanged     = fmt.Errorf("%w: booking was modified concurrently", ErrInvalidState)
	ErrPriceMismatch     = fmt.Errorf("%w: total_hours or total_price does not match the requested slot", ErrInvalidInterval)
)

func infraError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

// IsDomainError reports whether err is an expected, caller-recoverable failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidInterval)
}
