package booking

import (
	"github.com/google/uuid"
)

// CreateBookingRequest is the POST /bookings body. total_hours and total_price are
// optional; when sent they must match the server quote.
type CreateBookingRequest struct {
	FieldID       string  `json:"field_id" validate:"required,uuid"`
	BookingDate   string  `json:"booking_date" validate:"required,date"`
	StartTime     string  `json:"start_time" validate:"required,clock"`
	EndTime       string  `json:"end_time" validate:"required,clock"`
	TotalHours    float64 `json:"total_hours" validate:"gte=0"`
	TotalPrice    float64 `json:"total_price" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method" validate:"payment_method"`
	Notes         *string `json:"notes" validate:"omitempty,max=1000"`
}

// ToInput parses the validated request.
func (r *CreateBookingRequest) ToInput() (CreateInput, error) {
	fieldID, err := uuid.Parse(r.FieldID)
	if err != nil {
		return CreateInput{}, ErrFieldNotFound
	}
	date, err := ParseDate(r.BookingDate)
	if err != nil {
		return CreateInput{}, err
	}
	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return CreateInput{}, err
	}
	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return CreateInput{}, err
	}

	return CreateInput{
		FieldID:       fieldID,
		Date:          date,
		Interval:      Interval{Start: start, End: end},
		TotalHours:    r.TotalHours,
		TotalPrice:    r.TotalPrice,
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
	}, nil
}

// AvailabilityRequest is the POST /fields/{id}/availability body.
type AvailabilityRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// AvailabilityResponse answers an availability check.
type AvailabilityResponse struct {
	Available bool     `json:"available"`
	Date      Date     `json:"date"`
	Slot      Interval `json:"slot"`
}

// BookedSlotsResponse lists taken intervals of a field on one date.
type BookedSlotsResponse struct {
	FieldID uuid.UUID  `json:"field_id"`
	Date    Date       `json:"date"`
	Slots   []Interval `json:"slots"`
}

// UpdateStatusRequest is the PUT /bookings/{id}/status body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,booking_status"`
}
