package booking

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/pkg/logger"
)

// priceTolerance is how far caller-supplied hours/price may drift from the server quote.
const priceTolerance = 0.01

// CreateInput is a parsed booking creation request.
type CreateInput struct {
	FieldID       uuid.UUID
	Date          Date
	Interval      Interval
	TotalHours    float64
	TotalPrice    float64
	PaymentMethod string
	Notes         *string
}

// Service is the availability and booking lifecycle engine.
type Service struct {
	repo   Repository
	owners OwnershipResolver
	cache  SlotCache
	events Publisher
	loc    *time.Location
	now    func() time.Time
}

// NewService wires the engine. cache and events may be nil.
func NewService(repo Repository, owners OwnershipResolver, cache SlotCache, events Publisher) *Service {
	return &Service{
		repo:   repo,
		owners: owners,
		cache:  cache,
		events: events,
		loc:    time.UTC,
		now:    time.Now,
	}
}

// WithLocation sets the venue time zone used to decide when a slot has elapsed.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// CheckAvailability reports whether [iv.Start, iv.End) on date is free on the field.
func (s *Service) CheckAvailability(ctx context.Context, fieldID uuid.UUID, date Date, iv Interval) (bool, error) {
	if err := iv.Validate(); err != nil {
		return false, err
	}
	if _, err := s.repo.GetField(ctx, fieldID); err != nil {
		return false, err
	}

	n, err := s.repo.CountOverlapping(ctx, fieldID, date, iv)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// GetBookedSlots returns active intervals on (field, date) ordered by start time.
func (s *Service) GetBookedSlots(ctx context.Context, fieldID uuid.UUID, date Date) ([]Interval, error) {
	var gen int64
	if s.cache != nil {
		slots, g, ok := s.cache.Get(ctx, fieldID, date)
		if ok {
			return slots, nil
		}
		gen = g
	}

	if _, err := s.repo.GetField(ctx, fieldID); err != nil {
		return nil, err
	}
	slots, err := s.repo.ListActiveSlots(ctx, fieldID, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, fieldID, date, gen, slots)
	}
	return slots, nil
}

// Create books the interval for userID. The booking always starts as pending.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Booking, error) {
	if err := in.Interval.Validate(); err != nil {
		return nil, err
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentPending
	}

	draft := &Booking{
		UserID:        userID,
		FieldID:       in.FieldID,
		BookingDate:   in.Date,
		StartTime:     in.Interval.Start,
		EndTime:       in.Interval.End,
		PaymentMethod: paymentMethod,
		Notes:         in.Notes,
	}

	prepare := func(field *Field, b *Booking) error {
		if !field.IsAvailable {
			return ErrFieldUnavailable
		}
		hours, price := field.Quote(b.Interval())
		if mismatch(in.TotalHours, hours) || mismatch(in.TotalPrice, price) {
			return ErrPriceMismatch
		}
		b.TotalHours = hours
		b.TotalPrice = price
		b.Status = StatusPending
		return nil
	}

	if err := s.repo.CreateIfAvailable(ctx, draft, prepare); err != nil {
		if !IsDomainError(err) {
			logger.FromContext(ctx).Error().Err(err).
				Str("field_id", in.FieldID.String()).
				Str("date", in.Date.String()).
				Msg("booking create failed")
		}
		return nil, err
	}

	s.afterChange(ctx, EventBookingCreated, draft)

	logger.FromContext(ctx).Info().
		Str("booking_id", draft.ID.String()).
		Str("field_id", draft.FieldID.String()).
		Str("date", draft.BookingDate.String()).
		Str("slot", draft.Interval().String()).
		Msg("booking created")

	created, err := s.repo.GetByID(ctx, draft.ID)
	if err != nil {
		// the insert is committed, fall back to the draft without projections
		return draft, nil
	}
	return created, nil
}

// mismatch is true when the caller sent a value that disagrees with the quote.
// Zero means "not supplied".
func mismatch(supplied, quoted float64) bool {
	return supplied != 0 && math.Abs(supplied-quoted) > priceTolerance
}

// Cancel cancels a booking on behalf of its user or an admin.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if b.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	if err := s.transition(ctx, b, StatusCancelled); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			if cur, gerr := s.repo.GetByID(ctx, bookingID); gerr == nil && cur.Status == StatusCancelled {
				return nil, ErrAlreadyCancelled
			}
		}
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("booking_id", bookingID.String()).
		Str("actor_id", actor.UserID.String()).
		Msg("booking cancelled")

	return s.repo.GetByID(ctx, bookingID)
}

// UpdateStatus moves a booking to status on behalf of the venue owner or an admin.
func (s *Service) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status Status, actor Actor) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrUnknownStatus
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeField(ctx, b.FieldID, actor); err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled && status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !b.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	if err := s.transition(ctx, b, status); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("booking_id", bookingID.String()).
		Str("from", string(b.Status)).
		Str("to", string(status)).
		Str("actor_id", actor.UserID.String()).
		Msg("booking status updated")

	return s.repo.GetByID(ctx, bookingID)
}

func (s *Service) transition(ctx context.Context, b *Booking, to Status) error {
	var cancelledAt *time.Time
	if to == StatusCancelled {
		now := s.now()
		cancelledAt = &now
	}

	if err := s.repo.Transition(ctx, b.ID, b.Status, to, cancelledAt); err != nil {
		return err
	}

	event := EventBookingStatusChanged
	if to == StatusCancelled {
		event = EventBookingCancelled
	}
	changed := *b
	changed.Status = to
	s.afterChange(ctx, event, &changed)
	return nil
}

// afterChange runs the post-commit side effects of a schedule change.
func (s *Service) afterChange(ctx context.Context, event EventType, b *Booking) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, b.FieldID, b.BookingDate)
	}
	if s.events != nil {
		s.events.PublishScheduleEvent(ctx, ScheduleEvent{
			Type:      event,
			BookingID: b.ID,
			FieldID:   b.FieldID,
			Date:      b.BookingDate,
			Slot:      b.Interval(),
			Status:    b.Status,
		})
	}
}

// GetVenueStats aggregates bookings of a venue with from <= booking_date <= to.
func (s *Service) GetVenueStats(ctx context.Context, venueID uuid.UUID, from, to Date) (*Stats, error) {
	if to.Before(from) {
		return nil, ErrInvalidInterval
	}
	return s.repo.VenueStats(ctx, venueID, from, to)
}

// GetBooking returns a booking visible to its user, the venue owner or an admin.
func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID == actor.UserID || actor.IsAdmin() {
		return b, nil
	}
	if err := s.authorizeField(ctx, b.FieldID, actor); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListMyBookings(ctx context.Context, userID uuid.UUID) ([]*Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListVenueBookings(ctx context.Context, venueID uuid.UUID, actor Actor) ([]*Booking, error) {
	if err := s.AuthorizeVenue(ctx, venueID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByVenue(ctx, venueID)
}

// AuthorizeVenue allows admins and the venue's owner.
func (s *Service) AuthorizeVenue(ctx context.Context, venueID uuid.UUID, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	ownerID, err := s.owners.VenueOwner(ctx, venueID)
	if err != nil {
		return err
	}
	if ownerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) authorizeField(ctx context.Context, fieldID uuid.UUID, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	ownerID, err := s.owners.FieldOwner(ctx, fieldID)
	if err != nil {
		return err
	}
	if ownerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

// CompleteElapsed marks confirmed bookings whose slot ended by now as completed
// and announces each change to schedule watchers.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	local := now.In(s.loc)
	completed, err := s.repo.CompleteElapsed(ctx, DateOf(local), TimeOfDayOf(local))
	if err != nil {
		return 0, err
	}
	for _, b := range completed {
		s.afterChange(ctx, EventBookingStatusChanged, b)
	}
	n := int64(len(completed))
	if n > 0 {
		logger.FromContext(ctx).Info().Int64("count", n).Msg("bookings completed")
	}
	return n, nil
}
