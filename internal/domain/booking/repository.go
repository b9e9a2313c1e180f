package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/canchas/canchas-api/internal/pkg/database"
)

// PrepareFunc completes a booking draft once the field has been read under the schedule lock.
// Returning an error aborts the creation without touching the store.
type PrepareFunc func(field *Field, draft *Booking) error

// Repository defines booking data access.
type Repository interface {
	GetField(ctx context.Context, fieldID uuid.UUID) (*Field, error)
	ListActiveSlots(ctx context.Context, fieldID uuid.UUID, date Date) ([]Interval, error)
	CountOverlapping(ctx context.Context, fieldID uuid.UUID, date Date, iv Interval) (int, error)

	// CreateIfAvailable serializes on (field, date), re-runs the overlap check and inserts
	// the draft as one atomic unit. It returns ErrConflict when the slot is taken.
	CreateIfAvailable(ctx context.Context, draft *Booking, prepare PrepareFunc) error

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*Booking, error)

	// Transition moves a booking from one status to another only if it is still in `from`.
	// cancelledAt is stored when non-nil.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, cancelledAt *time.Time) error

	VenueStats(ctx context.Context, venueID uuid.UUID, from, to Date) (*Stats, error)

	// CompleteElapsed completes confirmed bookings that ended by today/now and
	// returns them with their new status.
	CompleteElapsed(ctx context.Context, today Date, now TimeOfDay) ([]*Booking, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the Postgres booking repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const bookingSelect = `
	SELECT b.id, b.user_id, b.field_id, b.booking_date, b.start_time, b.end_time,
	       b.total_hours, b.total_price, b.payment_method, b.status, b.notes,
	       b.cancelled_at, b.created_at, b.updated_at,
	       f.venue_id, f.name AS field_name, f.sport_type,
	       v.name AS venue_name, v.address AS venue_address, v.phone AS venue_phone,
	       u.name AS user_name, u.email AS user_email, u.phone AS user_phone
	FROM bookings b
	LEFT JOIN fields f ON f.id = b.field_id
	LEFT JOIN venues v ON v.id = f.venue_id
	LEFT JOIN users u ON u.id = b.user_id
`

const fieldSelect = `SELECT id, venue_id, name, sport_type, price_per_hour, is_available FROM fields WHERE id = $1`

// Single-inequality form of the half-open overlap test: s < e' AND e > s'
const overlapCount = `
	SELECT COUNT(*) FROM bookings
	WHERE field_id = $1
	  AND booking_date = $2
	  AND status <> 'cancelled'
	  AND start_time < $4
	  AND end_time > $3
`

func (r *repository) GetField(ctx context.Context, fieldID uuid.UUID) (*Field, error) {
	var f Field
	if err := r.db.GetContext(ctx, &f, fieldSelect, fieldID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, infraError("get field", err)
	}
	return &f, nil
}

func (r *repository) ListActiveSlots(ctx context.Context, fieldID uuid.UUID, date Date) ([]Interval, error) {
	slots := []Interval{}
	err := r.db.SelectContext(ctx, &slots, `
		SELECT start_time, end_time
		FROM bookings
		WHERE field_id = $1 AND booking_date = $2 AND status <> 'cancelled'
		ORDER BY start_time
	`, fieldID, date)
	if err != nil {
		return nil, infraError("list slots", err)
	}
	return slots, nil
}

func (r *repository) CountOverlapping(ctx context.Context, fieldID uuid.UUID, date Date, iv Interval) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, overlapCount, fieldID, date, iv.Start, iv.End); err != nil {
		return 0, infraError("count overlapping", err)
	}
	return n, nil
}

func scheduleKey(fieldID uuid.UUID, date Date) string {
	return fieldID.String() + ":" + date.String()
}

func (r *repository) CreateIfAvailable(ctx context.Context, draft *Booking, prepare PrepareFunc) error {
	err := database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		// Released on commit/rollback. Serializes creates for the same field and date
		// so the overlap check below sees every committed competitor.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			scheduleKey(draft.FieldID, draft.BookingDate)); err != nil {
			return err
		}

		var field Field
		if err := tx.GetContext(ctx, &field, fieldSelect+` FOR SHARE`, draft.FieldID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrFieldNotFound
			}
			return err
		}

		if err := prepare(&field, draft); err != nil {
			return err
		}

		var n int
		if err := tx.GetContext(ctx, &n, overlapCount, draft.FieldID, draft.BookingDate, draft.StartTime, draft.EndTime); err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		return tx.QueryRowxContext(ctx, `
			INSERT INTO bookings (
				user_id, field_id, booking_date, start_time, end_time,
				total_hours, total_price, payment_method, notes, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`,
			draft.UserID, draft.FieldID, draft.BookingDate, draft.StartTime, draft.EndTime,
			draft.TotalHours, draft.TotalPrice, draft.PaymentMethod, draft.Notes, draft.Status,
		).Scan(&draft.ID, &draft.CreatedAt, &draft.UpdatedAt)
	})
	if err != nil {
		return mapWriteError("create booking", err)
	}
	return nil
}

// mapWriteError keeps domain errors and translates constraint violations.
func mapWriteError(op string, err error) error {
	if IsDomainError(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23P01": // exclusion_violation: bookings_no_overlap
			return ErrConflict
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		case "23514": // check_violation: valid_time_range
			return fmt.Errorf("%w: %s", ErrInvalidInterval, pqErr.Constraint)
		}
	}
	return infraError(op, err)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	if err := r.db.GetContext(ctx, &b, bookingSelect+` WHERE b.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, infraError("get booking", err)
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error) {
	bookings := []*Booking{}
	err := r.db.SelectContext(ctx, &bookings, bookingSelect+`
		WHERE b.user_id = $1
		ORDER BY b.booking_date DESC, b.start_time DESC
	`, userID)
	if err != nil {
		return nil, infraError("list user bookings", err)
	}
	return bookings, nil
}

func (r *repository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*Booking, error) {
	bookings := []*Booking{}
	err := r.db.SelectContext(ctx, &bookings, bookingSelect+`
		WHERE f.venue_id = $1
		ORDER BY b.booking_date DESC, b.start_time DESC
	`, venueID)
	if err != nil {
		return nil, infraError("list venue bookings", err)
	}
	return bookings, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, cancelledAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $3, cancelled_at = COALESCE($4, cancelled_at), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, cancelledAt)
	if err != nil {
		return mapWriteError("transition booking", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return infraError("transition booking", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id); err != nil {
		return infraError("transition booking", err)
	}
	if !exists {
		return ErrBookingNotFound
	}
	return ErrStatusChanged
}

func (r *repository) VenueStats(ctx context.Context, venueID uuid.UUID, from, to Date) (*Stats, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM venues WHERE id = $1)`, venueID); err != nil {
		return nil, infraError("venue stats", err)
	}
	if !exists {
		return nil, ErrVenueNotFound
	}

	stats := Stats{VenueID: venueID, StartDate: from, EndDate: to}
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_bookings,
			COUNT(*) FILTER (WHERE b.status = 'confirmed') AS confirmed_bookings,
			COUNT(*) FILTER (WHERE b.status = 'pending') AS pending_bookings,
			COALESCE(SUM(b.total_price) FILTER (WHERE b.status = 'confirmed'), 0) AS total_revenue
		FROM bookings b
		JOIN fields f ON f.id = b.field_id
		WHERE f.venue_id = $1
		  AND b.booking_date >= $2
		  AND b.booking_date <= $3
	`, venueID, from, to)
	if err != nil {
		return nil, infraError("venue stats", err)
	}
	return &stats, nil
}

func (r *repository) CompleteElapsed(ctx context.Context, today Date, now TimeOfDay) ([]*Booking, error) {
	var completed []*Booking
	err := r.db.SelectContext(ctx, &completed, `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed'
		  AND (booking_date < $1 OR (booking_date = $1 AND end_time <= $2))
		RETURNING id, user_id, field_id, booking_date, start_time, end_time, status, updated_at
	`, today, now)
	if err != nil {
		return nil, infraError("complete elapsed bookings", err)
	}
	return completed, nil
}
