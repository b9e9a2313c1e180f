package venue

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	roleAdmin        = "admin"
	defaultSportType = "futbol"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Venue, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]*Venue, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Venue, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFields returns the fields of an existing venue ordered by name
func (s *Service) ListFields(ctx context.Context, venueID uuid.UUID) ([]*Field, error) {
	if _, err := s.repo.GetByID(ctx, venueID); err != nil {
		return nil, err
	}
	return s.repo.ListFields(ctx, venueID)
}

func (s *Service) GetField(ctx context.Context, id uuid.UUID) (*Field, error) {
	return s.repo.GetField(ctx, id)
}

// CreateVenue registers a venue owned by the caller. An admin may create it on
// behalf of another owner.
func (s *Service) CreateVenue(ctx context.Context, userID uuid.UUID, role string, in CreateVenueInput) (*Venue, error) {
	if role != roleAdmin || in.OwnerID == uuid.Nil {
		in.OwnerID = userID
	}

	v, err := s.repo.CreateVenue(ctx, in)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("venue_id", v.ID.String()).
		Str("owner_id", v.OwnerID.String()).
		Str("user_id", userID.String()).
		Msg("venue created")
	return v, nil
}

func (s *Service) UpdateVenue(ctx context.Context, venueID, userID uuid.UUID, role string, in UpdateVenueInput) (*Venue, error) {
	if err := s.authorizeVenue(ctx, venueID, userID, role); err != nil {
		return nil, err
	}
	return s.repo.UpdateVenue(ctx, venueID, in)
}

// DeleteVenue removes a venue without fields. Venues with fields are closed
// with is_active=false instead.
func (s *Service) DeleteVenue(ctx context.Context, venueID, userID uuid.UUID, role string) error {
	if err := s.authorizeVenue(ctx, venueID, userID, role); err != nil {
		return err
	}
	if err := s.repo.DeleteVenue(ctx, venueID); err != nil {
		return err
	}

	log.Info().Str("venue_id", venueID.String()).Str("user_id", userID.String()).Msg("venue deleted")
	return nil
}

// CreateField adds a field to a venue of the caller.
func (s *Service) CreateField(ctx context.Context, userID uuid.UUID, role string, in CreateFieldInput) (*Field, error) {
	if in.PricePerHour <= 0 {
		return nil, ErrInvalidPrice
	}
	if in.SportType == "" {
		in.SportType = defaultSportType
	}
	if err := s.authorizeVenue(ctx, in.VenueID, userID, role); err != nil {
		return nil, err
	}

	f, err := s.repo.CreateField(ctx, in)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("field_id", f.ID.String()).
		Str("venue_id", f.VenueID.String()).
		Str("user_id", userID.String()).
		Float64("price_per_hour", f.PricePerHour).
		Msg("field created")
	return f, nil
}

// UpdateField changes pricing or availability. Only the venue owner or an admin may do it.
// Existing bookings keep the price they were created with.
func (s *Service) UpdateField(ctx context.Context, fieldID, userID uuid.UUID, role string, in UpdateFieldInput) (*Field, error) {
	if in.PricePerHour != nil && *in.PricePerHour <= 0 {
		return nil, ErrInvalidPrice
	}
	if err := s.authorizeField(ctx, fieldID, userID, role); err != nil {
		return nil, err
	}

	f, err := s.repo.UpdateField(ctx, fieldID, in)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("field_id", fieldID.String()).
		Str("user_id", userID.String()).
		Bool("is_available", f.IsAvailable).
		Float64("price_per_hour", f.PricePerHour).
		Msg("field updated")
	return f, nil
}

// DeleteField removes a field that never had bookings. Fields with bookings,
// active or historical, fail with ErrFieldHasBookings.
func (s *Service) DeleteField(ctx context.Context, fieldID, userID uuid.UUID, role string) error {
	if err := s.authorizeField(ctx, fieldID, userID, role); err != nil {
		return err
	}
	if err := s.repo.DeleteField(ctx, fieldID); err != nil {
		return err
	}

	log.Info().Str("field_id", fieldID.String()).Str("user_id", userID.String()).Msg("field deleted")
	return nil
}

// authorizeVenue resolves the venue first so unknown venues are 404 for everyone.
func (s *Service) authorizeVenue(ctx context.Context, venueID, userID uuid.UUID, role string) error {
	ownerID, err := s.repo.VenueOwner(ctx, venueID)
	if err != nil {
		return err
	}
	if role != roleAdmin && ownerID != userID {
		return ErrNotVenueOwner
	}
	return nil
}

func (s *Service) authorizeField(ctx context.Context, fieldID, userID uuid.UUID, role string) error {
	ownerID, err := s.repo.FieldOwner(ctx, fieldID)
	if err != nil {
		return err
	}
	if role != roleAdmin && ownerID != userID {
		return ErrNotVenueOwner
	}
	return nil
}
