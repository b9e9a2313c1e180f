package venue

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a sports complex owned by a user with the owner role
type Venue struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	OwnerName   *string `db:"owner_name" json:"owner_name,omitempty"`
	FieldsCount int     `db:"fields_count" json:"fields_count"`
}

// Field is a bookable playing surface of a venue
type Field struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VenueID      uuid.UUID `db:"venue_id" json:"venue_id"`
	Name         string    `db:"name" json:"name"`
	SportType    string    `db:"sport_type" json:"sport_type"`
	PricePerHour float64   `db:"price_per_hour" json:"price_per_hour"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	VenueName    *string `db:"venue_name" json:"venue_name,omitempty"`
	VenueAddress *string `db:"venue_address" json:"venue_address,omitempty"`
}

// ListFilter narrows the public venue listing
type ListFilter struct {
	Search    string
	SportType string
}

// UpdateFieldInput holds the mutable field attributes. Nil means unchanged.
type UpdateFieldInput struct {
	Name         *string
	SportType    *string
	PricePerHour *float64
	IsAvailable  *bool
}

// CreateVenueInput describes a new venue. OwnerID is set by the service.
type CreateVenueInput struct {
	OwnerID uuid.UUID
	Name    string
	Address string
	Phone   *string
}

// UpdateVenueInput holds the mutable venue attributes. Nil means unchanged.
type UpdateVenueInput struct {
	Name     *string
	Address  *string
	Phone    *string
	IsActive *bool
}

// CreateFieldInput describes a new field of an existing venue
type CreateFieldInput struct {
	VenueID      uuid.UUID
	Name         string
	SportType    string
	PricePerHour float64
	IsAvailable  bool
}
