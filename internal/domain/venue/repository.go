package venue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines venue and field data access
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]*Venue, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Venue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Venue, error)
	CreateVenue(ctx context.Context, in CreateVenueInput) (*Venue, error)
	UpdateVenue(ctx context.Context, id uuid.UUID, in UpdateVenueInput) (*Venue, error)
	// DeleteVenue fails with ErrVenueHasFields while any field references the venue.
	DeleteVenue(ctx context.Context, id uuid.UUID) error

	ListFields(ctx context.Context, venueID uuid.UUID) ([]*Field, error)
	GetField(ctx context.Context, id uuid.UUID) (*Field, error)
	CreateField(ctx context.Context, in CreateFieldInput) (*Field, error)
	UpdateField(ctx context.Context, id uuid.UUID, in UpdateFieldInput) (*Field, error)
	// DeleteField fails with ErrFieldHasBookings while any booking references the field.
	DeleteField(ctx context.Context, id uuid.UUID) error

	FieldOwner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error)
	VenueOwner(ctx context.Context, venueID uuid.UUID) (uuid.UUID, error)
}

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the Postgres venue repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const venueSelect = `
	SELECT v.id, v.owner_id, v.name, v.address, v.phone, v.is_active, v.created_at, v.updated_at,
	       u.name AS owner_name,
	       (SELECT COUNT(*) FROM fields f WHERE f.venue_id = v.id) AS fields_count
	FROM venues v
	LEFT JOIN users u ON u.id = v.owner_id
`

const fieldSelect = `
	SELECT f.id, f.venue_id, f.name, f.sport_type, f.price_per_hour, f.is_available,
	       f.created_at, f.updated_at,
	       v.name AS venue_name, v.address AS venue_address
	FROM fields f
	JOIN venues v ON v.id = f.venue_id
`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Venue, error) {
	venues := []*Venue{}
	err := r.db.SelectContext(ctx, &venues, venueSelect+`
		WHERE v.is_active
		  AND ($1 = '' OR v.name ILIKE '%' || $1 || '%' OR v.address ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR EXISTS (
		      SELECT 1 FROM fields f WHERE f.venue_id = v.id AND f.sport_type ILIKE '%' || $2 || '%'
		  ))
		ORDER BY v.created_at DESC
	`, filter.Search, filter.SportType)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Venue, error) {
	venues := []*Venue{}
	err := r.db.SelectContext(ctx, &venues, venueSelect+`
		WHERE v.owner_id = $1
		ORDER BY v.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner venues: %w", err)
	}
	return venues, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	var v Venue
	if err := r.db.GetContext(ctx, &v, venueSelect+` WHERE v.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return &v, nil
}

func (r *repository) CreateVenue(ctx context.Context, in CreateVenueInput) (*Venue, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO venues (owner_id, name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, in.OwnerID, in.Name, in.Address, in.Phone)
	if err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("create venue: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *repository) UpdateVenue(ctx context.Context, id uuid.UUID, in UpdateVenueInput) (*Venue, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE venues
		SET name = COALESCE($2, name),
		    address = COALESCE($3, address),
		    phone = COALESCE($4, phone),
		    is_active = COALESCE($5, is_active),
		    updated_at = NOW()
		WHERE id = $1
	`, id, in.Name, in.Address, in.Phone, in.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update venue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrVenueNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *repository) DeleteVenue(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return ErrVenueHasFields
		}
		return fmt.Errorf("delete venue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}

func (r *repository) ListFields(ctx context.Context, venueID uuid.UUID) ([]*Field, error) {
	fields := []*Field{}
	if err := r.db.SelectContext(ctx, &fields, fieldSelect+` WHERE f.venue_id = $1 ORDER BY f.name`, venueID); err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	return fields, nil
}

func (r *repository) GetField(ctx context.Context, id uuid.UUID) (*Field, error) {
	var f Field
	if err := r.db.GetContext(ctx, &f, fieldSelect+` WHERE f.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("get field: %w", err)
	}
	return &f, nil
}

func (r *repository) CreateField(ctx context.Context, in CreateFieldInput) (*Field, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO fields (venue_id, name, sport_type, price_per_hour, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.VenueID, in.Name, in.SportType, in.PricePerHour, in.IsAvailable)
	if err != nil {
		switch pqCode(err) {
		case pgForeignKeyViolation:
			return nil, ErrVenueNotFound
		case pgCheckViolation:
			return nil, ErrInvalidPrice
		}
		return nil, fmt.Errorf("create field: %w", err)
	}
	return r.GetField(ctx, id)
}

// DeleteField relies on the bookings foreign key, which also covers bookings
// inserted after any check done here.
func (r *repository) DeleteField(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fields WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return ErrFieldHasBookings
		}
		return fmt.Errorf("delete field: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFieldNotFound
	}
	return nil
}

func (r *repository) UpdateField(ctx context.Context, id uuid.UUID, in UpdateFieldInput) (*Field, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fields
		SET name = COALESCE($2, name),
		    sport_type = COALESCE($3, sport_type),
		    price_per_hour = COALESCE($4, price_per_hour),
		    is_available = COALESCE($5, is_available),
		    updated_at = NOW()
		WHERE id = $1
	`, id, in.Name, in.SportType, in.PricePerHour, in.IsAvailable)
	if err != nil {
		if pqCode(err) == pgCheckViolation {
			return nil, ErrInvalidPrice
		}
		return nil, fmt.Errorf("update field: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrFieldNotFound
	}
	return r.GetField(ctx, id)
}

func (r *repository) FieldOwner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.GetContext(ctx, &ownerID, `
		SELECT v.owner_id FROM fields f JOIN venues v ON v.id = f.venue_id WHERE f.id = $1
	`, fieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrFieldNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve field owner: %w", err)
	}
	return ownerID, nil
}

func (r *repository) VenueOwner(ctx context.Context, venueID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	if err := r.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM venues WHERE id = $1`, venueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrVenueNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve venue owner: %w", err)
	}
	return ownerID, nil
}
