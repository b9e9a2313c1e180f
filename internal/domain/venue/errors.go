package venue

import "errors"

var (
	ErrVenueNotFound    = errors.New("venue not found")
	ErrFieldNotFound    = errors.New("field not found")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrNotVenueOwner    = errors.New("only the venue owner can modify it")
	ErrInvalidPrice     = errors.New("price_per_hour must be positive")
	ErrVenueHasFields   = errors.New("venue still has fields; delete them or deactivate the venue")
	ErrFieldHasBookings = errors.New("field has bookings; mark it unavailable instead")
)
