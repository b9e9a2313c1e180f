package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryVenue struct {
	ownerID uuid.UUID
	name    string
	address string
	phone   string
}

type memoryUser struct {
	name  string
	email string
	phone string
}

// MemoryRepository is an in-process Repository and OwnershipResolver used by tests
// and local runs without Postgres. Creation is serialized per (field, date) the same
// way the Postgres repository serializes it with an advisory lock.
type MemoryRepository struct {
	mu       sync.RWMutex
	venues   map[uuid.UUID]memoryVenue
	fields   map[uuid.UUID]Field
	users    map[uuid.UUID]memoryUser
	bookings map[uuid.UUID]*Booking
	locks    *scheduleLocks
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		venues:   make(map[uuid.UUID]memoryVenue),
		fields:   make(map[uuid.UUID]Field),
		users:    make(map[uuid.UUID]memoryUser),
		bookings: make(map[uuid.UUID]*Booking),
		locks:    newScheduleLocks(),
		now:      time.Now,
	}
}

func (r *MemoryRepository) AddUser(id uuid.UUID, name, email, phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = memoryUser{name: name, email: email, phone: phone}
}

func (r *MemoryRepository) AddVenue(id, ownerID uuid.UUID, name, address, phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[id] = memoryVenue{ownerID: ownerID, name: name, address: address, phone: phone}
}

func (r *MemoryRepository) AddField(f Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[f.ID] = f
}

func (r *MemoryRepository) GetField(_ context.Context, fieldID uuid.UUID) (*Field, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fields[fieldID]
	if !ok {
		return nil, ErrFieldNotFound
	}
	return &f, nil
}

func (r *MemoryRepository) ListActiveSlots(_ context.Context, fieldID uuid.UUID, date Date) ([]Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slots := []Interval{}
	for _, b := range r.bookings {
		if b.FieldID == fieldID && b.BookingDate.Equal(date) && b.IsActive() {
			slots = append(slots, b.Interval())
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots, nil
}

func (r *MemoryRepository) CountOverlapping(_ context.Context, fieldID uuid.UUID, date Date, iv Interval) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countOverlappingLocked(fieldID, date, iv), nil
}

func (r *MemoryRepository) countOverlappingLocked(fieldID uuid.UUID, date Date, iv Interval) int {
	n := 0
	for _, b := range r.bookings {
		if b.FieldID == fieldID && b.BookingDate.Equal(date) && b.IsActive() && b.Interval().Overlaps(iv) {
			n++
		}
	}
	return n
}

func (r *MemoryRepository) CreateIfAvailable(_ context.Context, draft *Booking, prepare PrepareFunc) error {
	unlock := r.locks.lock(scheduleKey(draft.FieldID, draft.BookingDate))
	defer unlock()

	r.mu.RLock()
	field, ok := r.fields[draft.FieldID]
	r.mu.RUnlock()
	if !ok {
		return ErrFieldNotFound
	}

	if err := prepare(&field, draft); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.countOverlappingLocked(draft.FieldID, draft.BookingDate, draft.Interval()) > 0 {
		return ErrConflict
	}

	now := r.now()
	draft.ID = uuid.New()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	stored := *draft
	r.bookings[stored.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return r.project(b), nil
}

// project copies a stored booking and fills the read-through fields.
func (r *MemoryRepository) project(b *Booking) *Booking {
	out := *b
	if f, ok := r.fields[b.FieldID]; ok {
		venueID := f.VenueID
		out.VenueID = &venueID
		out.FieldName = strPtr(f.Name)
		out.SportType = strPtr(f.SportType)
		if v, ok := r.venues[f.VenueID]; ok {
			out.VenueName = strPtr(v.name)
			out.VenueAddress = strPtr(v.address)
			out.VenuePhone = strPtr(v.phone)
		}
	}
	if u, ok := r.users[b.UserID]; ok {
		out.UserName = strPtr(u.name)
		out.UserEmail = strPtr(u.email)
		out.UserPhone = strPtr(u.phone)
	}
	return &out
}

func (r *MemoryRepository) list(match func(b *Booking) bool) []*Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Booking{}
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, r.project(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].BookingDate.After(out[j].BookingDate)
		}
		return out[i].StartTime > out[j].StartTime
	})
	return out
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*Booking, error) {
	return r.list(func(b *Booking) bool { return b.UserID == userID }), nil
}

func (r *MemoryRepository) ListByVenue(_ context.Context, venueID uuid.UUID) ([]*Booking, error) {
	return r.list(func(b *Booking) bool { return r.fields[b.FieldID].VenueID == venueID }), nil
}

func (r *MemoryRepository) Transition(_ context.Context, id uuid.UUID, from, to Status, cancelledAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.Status != from {
		return ErrStatusChanged
	}

	b.Status = to
	if cancelledAt != nil {
		at := *cancelledAt
		b.CancelledAt = &at
	}
	b.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) VenueStats(_ context.Context, venueID uuid.UUID, from, to Date) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.venues[venueID]; !ok {
		return nil, ErrVenueNotFound
	}

	stats := &Stats{VenueID: venueID, StartDate: from, EndDate: to}
	for _, b := range r.bookings {
		f, ok := r.fields[b.FieldID]
		if !ok || f.VenueID != venueID || b.BookingDate.Before(from) || b.BookingDate.After(to) {
			continue
		}
		stats.TotalBookings++
		switch b.Status {
		case StatusConfirmed:
			stats.ConfirmedBookings++
			stats.TotalRevenue += b.TotalPrice
		case StatusPending:
			stats.PendingBookings++
		}
	}
	stats.TotalRevenue = roundCents(stats.TotalRevenue)
	return stats, nil
}

func (r *MemoryRepository) CompleteElapsed(_ context.Context, today Date, now TimeOfDay) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var completed []*Booking
	for _, b := range r.bookings {
		if b.Status != StatusConfirmed {
			continue
		}
		if b.BookingDate.Before(today) || (b.BookingDate.Equal(today) && b.EndTime <= now) {
			b.Status = StatusCompleted
			b.UpdatedAt = r.now()
			cp := *b
			completed = append(completed, &cp)
		}
	}
	return completed, nil
}

func (r *MemoryRepository) FieldOwner(_ context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fields[fieldID]
	if !ok {
		return uuid.Nil, ErrFieldNotFound
	}
	v, ok := r.venues[f.VenueID]
	if !ok {
		return uuid.Nil, ErrVenueNotFound
	}
	return v.ownerID, nil
}

func (r *MemoryRepository) VenueOwner(_ context.Context, venueID uuid.UUID) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.venues[venueID]
	if !ok {
		return uuid.Nil, ErrVenueNotFound
	}
	return v.ownerID, nil
}

func strPtr(s string) *string {
	return &s
}
