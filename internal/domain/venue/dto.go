package venue

import "github.com/google/uuid"

// UpdateFieldRequest is the PUT /fields/{id} body
type UpdateFieldRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=120"`
	SportType    *string  `json:"sport_type" validate:"omitempty,min=1,max=40"`
	PricePerHour *float64 `json:"price_per_hour" validate:"omitempty,gt=0"`
	IsAvailable  *bool    `json:"is_available"`
}

func (r *UpdateFieldRequest) toInput() UpdateFieldInput {
	return UpdateFieldInput{
		Name:         r.Name,
		SportType:    r.SportType,
		PricePerHour: r.PricePerHour,
		IsAvailable:  r.IsAvailable,
	}
}

// CreateVenueRequest is the POST /venues body. owner_id is honoured for admins only.
type CreateVenueRequest struct {
	Name    string     `json:"name" validate:"required,min=1,max=160"`
	Address string     `json:"address" validate:"max=500"`
	Phone   *string    `json:"phone" validate:"omitempty,max=32"`
	OwnerID *uuid.UUID `json:"owner_id"`
}

func (r *CreateVenueRequest) toInput() CreateVenueInput {
	in := CreateVenueInput{Name: r.Name, Address: r.Address, Phone: r.Phone}
	if r.OwnerID != nil {
		in.OwnerID = *r.OwnerID
	}
	return in
}

// UpdateVenueRequest is the PUT /venues/{id} body
type UpdateVenueRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=160"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	IsActive *bool   `json:"is_active"`
}

func (r *UpdateVenueRequest) toInput() UpdateVenueInput {
	return UpdateVenueInput{
		Name:     r.Name,
		Address:  r.Address,
		Phone:    r.Phone,
		IsActive: r.IsActive,
	}
}

// CreateFieldRequest is the POST /fields body. Fields open for booking unless is_available is false.
type CreateFieldRequest struct {
	VenueID      uuid.UUID `json:"venue_id" validate:"required"`
	Name         string    `json:"name" validate:"required,min=1,max=120"`
	SportType    string    `json:"sport_type" validate:"omitempty,max=40"`
	PricePerHour float64   `json:"price_per_hour" validate:"required,gt=0"`
	IsAvailable  *bool     `json:"is_available"`
}

func (r *CreateFieldRequest) toInput() CreateFieldInput {
	in := CreateFieldInput{
		VenueID:      r.VenueID,
		Name:         r.Name,
		SportType:    r.SportType,
		PricePerHour: r.PricePerHour,
		IsAvailable:  true,
	}
	if r.IsAvailable != nil {
		in.IsAvailable = *r.IsAvailable
	}
	return in
}
