package booking

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status represents booking status (matches bookings.status check constraint)
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// cancelled and completed are terminal
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether a booking in this status holds its time slot.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment methods accepted on creation. Gateway integration is not implemented,
// "pending" means the user will choose later.
const (
	PaymentPending  = "pending"
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Booking is a reservation of one field for [StartTime, EndTime) on BookingDate.
type Booking struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	FieldID       uuid.UUID  `db:"field_id" json:"field_id"`
	BookingDate   Date       `db:"booking_date" json:"booking_date"`
	StartTime     TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime       TimeOfDay  `db:"end_time" json:"end_time"`
	TotalHours    float64    `db:"total_hours" json:"total_hours"`
	TotalPrice    float64    `db:"total_price" json:"total_price"`
	PaymentMethod string     `db:"payment_method" json:"payment_method"`
	Status        Status     `db:"status" json:"status"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CancelledAt   *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	// Read-through projections, never written back
	VenueID      *uuid.UUID `db:"venue_id" json:"venue_id,omitempty"`
	FieldName    *string    `db:"field_name" json:"field_name,omitempty"`
	SportType    *string    `db:"sport_type" json:"sport_type,omitempty"`
	VenueName    *string    `db:"venue_name" json:"venue_name,omitempty"`
	VenueAddress *string    `db:"venue_address" json:"venue_address,omitempty"`
	VenuePhone   *string    `db:"venue_phone" json:"venue_phone,omitempty"`
	UserName     *string    `db:"user_name" json:"user_name,omitempty"`
	UserEmail    *string    `db:"user_email" json:"user_email,omitempty"`
	UserPhone    *string    `db:"user_phone" json:"user_phone,omitempty"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

func (b *Booking) IsActive() bool {
	return b.Status.IsActive()
}

// Field is the bookable-surface view the engine needs: pricing, availability and owning venue.
type Field struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VenueID      uuid.UUID `db:"venue_id" json:"venue_id"`
	Name         string    `db:"name" json:"name"`
	SportType    string    `db:"sport_type" json:"sport_type"`
	PricePerHour float64   `db:"price_per_hour" json:"price_per_hour"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
}

// Quote prices an interval on the field.
func (f *Field) Quote(iv Interval) (hours, price float64) {
	hours = iv.Hours()
	return hours, roundCents(float64(iv.End-iv.Start) / 3600 * f.PricePerHour)
}

// Stats aggregates bookings of one venue over a date range.
type Stats struct {
	VenueID           uuid.UUID `db:"-" json:"venue_id"`
	StartDate         Date      `db:"-" json:"start_date"`
	EndDate           Date      `db:"-" json:"end_date"`
	TotalBookings     int       `db:"total_bookings" json:"total_bookings"`
	ConfirmedBookings int       `db:"confirmed_bookings" json:"confirmed_bookings"`
	PendingBookings   int       `db:"pending_bookings" json:"pending_bookings"`
	TotalRevenue      float64   `db:"total_revenue" json:"total_revenue"`
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
