package booking

import (
	"context"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingCreated       EventType = "booking_created"
	EventBookingCancelled     EventType = "booking_cancelled"
	EventBookingStatusChanged EventType = "booking_status_changed"
)

// ScheduleEvent describes a committed change to a field's schedule.
type ScheduleEvent struct {
	Type      EventType `json:"type"`
	BookingID uuid.UUID `json:"booking_id"`
	FieldID   uuid.UUID `json:"field_id"`
	Date      Date      `json:"date"`
	Slot      Interval  `json:"slot"`
	Status    Status    `json:"status"`
}

// Publisher receives schedule events after commit. Delivery is fire-and-forget.
type Publisher interface {
	PublishScheduleEvent(ctx context.Context, event ScheduleEvent)
}

// OwnershipResolver answers who owns a field or venue, keeping the
// authorization policy outside the booking engine.
type OwnershipResolver interface {
	FieldOwner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error)
	VenueOwner(ctx context.Context, venueID uuid.UUID) (uuid.UUID, error)
}
