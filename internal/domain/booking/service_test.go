package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/domain/booking"
)

type fixture struct {
	repo    *booking.MemoryRepository
	svc     *booking.Service
	cache   *stubCache
	events  *stubPublisher
	ownerID uuid.UUID
	venueID uuid.UUID
	fieldID uuid.UUID
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    booking.NewMemoryRepository(),
		cache:   newStubCache(),
		events:  &stubPublisher{},
		ownerID: uuid.New(),
		venueID: uuid.New(),
		fieldID: uuid.New(),
		userID:  uuid.New(),
	}
	f.repo.AddUser(f.userID, "Ana", "ana@example.com", "+5491100000000")
	f.repo.AddUser(f.ownerID, "Owner", "owner@example.com", "+5491100000001")
	f.repo.AddVenue(f.venueID, f.ownerID, "Complejo Norte", "Av. Siempre Viva 742", "+541143210000")
	f.repo.AddField(booking.Field{
		ID:           f.fieldID,
		VenueID:      f.venueID,
		Name:         "Cancha 1",
		SportType:    "futbol5",
		PricePerHour: 100,
		IsAvailable:  true,
	})
	f.svc = booking.NewService(f.repo, f.repo, f.cache, f.events)
	return f
}

func slot(start, end string) booking.Interval {
	return booking.Interval{Start: booking.MustTimeOfDay(start), End: booking.MustTimeOfDay(end)}
}

var testDate = booking.MustDate("2024-06-01")

func (f *fixture) create(t *testing.T, userID uuid.UUID, iv booking.Interval) *booking.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), userID, booking.CreateInput{
		FieldID:  f.fieldID,
		Date:     testDate,
		Interval: iv,
	})
	if err != nil {
		t.Fatalf("create %s failed: %v", iv, err)
	}
	return b
}

func (f *fixture) user() booking.Actor  { return booking.Actor{UserID: f.userID, Role: booking.RoleUser} }
func (f *fixture) owner() booking.Actor { return booking.Actor{UserID: f.ownerID, Role: booking.RoleOwner} }

func TestCreateForcesPendingAndProjects(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, f.userID, slot("10:00", "11:30"))

	if b.Status != booking.StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.TotalHours != 1.5 || b.TotalPrice != 150 {
		t.Fatalf("expected 1.5h / 150, got %vh / %v", b.TotalHours, b.TotalPrice)
	}
	if b.PaymentMethod != booking.PaymentPending {
		t.Fatalf("expected default payment method, got %q", b.PaymentMethod)
	}
	if b.FieldName == nil || *b.FieldName != "Cancha 1" || b.VenueName == nil || b.UserEmail == nil {
		t.Fatalf("expected read-through projections, got %+v", b)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != booking.EventBookingCreated {
		t.Fatalf("expected one created event, got %+v", f.events.events)
	}
}

func TestTouchingIntervalsAreBothBookable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.userID, slot("10:00", "12:00"))

	available, err := f.svc.CheckAvailability(ctx, f.fieldID, testDate, slot("12:00", "14:00"))
	if err != nil {
		t.Fatalf("check availability failed: %v", err)
	}
	if !available {
		t.Fatal("expected 12:00-14:00 to be available after 10:00-12:00")
	}

	f.create(t, f.userID, slot("12:00", "14:00"))
}

func TestOverlappingIntervalConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.userID, slot("10:00", "12:00"))

	available, err := f.svc.CheckAvailability(ctx, f.fieldID, testDate, slot("11:00", "13:00"))
	if err != nil {
		t.Fatalf("check availability failed: %v", err)
	}
	if available {
		t.Fatal("expected 11:00-13:00 to be unavailable")
	}

	_, err = f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: f.fieldID, Date: testDate, Interval: slot("11:00", "13:00")})
	if !errors.Is(err, booking.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestOtherDateAndFieldDoNotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherField := uuid.New()
	f.repo.AddField(booking.Field{ID: otherField, VenueID: f.venueID, Name: "Cancha 2", PricePerHour: 80, IsAvailable: true})

	f.create(t, f.userID, slot("10:00", "12:00"))

	if _, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: otherField, Date: testDate, Interval: slot("10:00", "12:00")}); err != nil {
		t.Fatalf("other field should be free: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: f.fieldID, Date: testDate.AddDays(1), Interval: slot("10:00", "12:00")}); err != nil {
		t.Fatalf("other date should be free: %v", err)
	}
}

func TestCancelRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := uuid.New()

	a := f.create(t, f.userID, slot("09:00", "10:00"))

	_, err := f.svc.Create(ctx, other, booking.CreateInput{FieldID: f.fieldID, Date: testDate, Interval: slot("09:00", "10:00")})
	if !errors.Is(err, booking.ErrConflict) {
		t.Fatalf("expected ErrConflict before cancel, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, a.ID, f.user())
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != booking.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled with timestamp, got %s %v", cancelled.Status, cancelled.CancelledAt)
	}

	if _, err := f.svc.Create(ctx, other, booking.CreateInput{FieldID: f.fieldID, Date: testDate, Interval: slot("09:00", "10:00")}); err != nil {
		t.Fatalf("expected slot to be free after cancel, got %v", err)
	}
}

func TestCancelTwiceIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t, f.userID, slot("09:00", "10:00"))
	if _, err := f.svc.Cancel(ctx, b.ID, f.user()); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}

	_, err := f.svc.Cancel(ctx, b.ID, f.user())
	if !errors.Is(err, booking.ErrInvalidState) || !errors.Is(err, booking.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t, f.userID, slot("09:00", "10:00"))

	stranger := booking.Actor{UserID: uuid.New(), Role: booking.RoleUser}
	if _, err := f.svc.Cancel(ctx, b.ID, stranger); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	admin := booking.Actor{UserID: uuid.New(), Role: booking.RoleAdmin}
	if _, err := f.svc.Cancel(ctx, b.ID, admin); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, uuid.New(), admin); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidIntervalRejectedBeforeStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, iv := range []booking.Interval{slot("10:00", "10:00"), slot("12:00", "10:00")} {
		_, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: f.fieldID, Date: testDate, Interval: iv})
		if !errors.Is(err, booking.ErrInvalidInterval) {
			t.Fatalf("%s: expected ErrInvalidInterval, got %v", iv, err)
		}
		if _, err := f.svc.CheckAvailability(ctx, f.fieldID, testDate, iv); !errors.Is(err, booking.ErrInvalidInterval) {
			t.Fatalf("%s: availability expected ErrInvalidInterval, got %v", iv, err)
		}
	}

	mine, _ := f.svc.ListMyBookings(ctx, f.userID)
	if len(mine) != 0 {
		t.Fatalf("expected no stored bookings, got %d", len(mine))
	}
	if len(f.events.events) != 0 {
		t.Fatalf("expected no events, got %d", len(f.events.events))
	}
}

func TestCreateUnknownOrUnavailableField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: uuid.New(), Date: testDate, Interval: slot("10:00", "11:00")})
	if !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	closed := uuid.New()
	f.repo.AddField(booking.Field{ID: closed, VenueID: f.venueID, Name: "Cerrada", PricePerHour: 50, IsAvailable: false})
	_, err = f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: closed, Date: testDate, Interval: slot("10:00", "11:00")})
	if !errors.Is(err, booking.ErrFieldUnavailable) {
		t.Fatalf("expected ErrFieldUnavailable, got %v", err)
	}
}

func TestCreateRejectsMismatchedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.userID, booking.CreateInput{
		FieldID:    f.fieldID,
		Date:       testDate,
		Interval:   slot("10:00", "12:00"),
		TotalHours: 2,
		TotalPrice: 1,
	})
	if !errors.Is(err, booking.ErrPriceMismatch) || !errors.Is(err, booking.ErrInvalidInterval) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}

	b, err := f.svc.Create(ctx, f.userID, booking.CreateInput{
		FieldID:    f.fieldID,
		Date:       testDate,
		Interval:   slot("10:00", "12:00"),
		TotalHours: 2,
		TotalPrice: 200,
	})
	if err != nil {
		t.Fatalf("matching price rejected: %v", err)
	}
	if b.TotalPrice != 200 {
		t.Fatalf("expected 200, got %v", b.TotalPrice)
	}
}

func TestConcurrentIdenticalCreatesOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), uuid.New(), booking.CreateInput{
				FieldID:  f.fieldID,
				Date:     testDate,
				Interval: slot("18:00", "19:00"),
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, booking.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one successful create, got %d", success)
	}
}

func TestConcurrentMixedCreatesKeepScheduleDisjoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	candidates := []booking.Interval{
		slot("08:00", "10:00"), slot("09:00", "11:00"), slot("10:00", "12:00"),
		slot("11:00", "12:30"), slot("12:00", "13:00"), slot("08:30", "09:30"),
		slot("12:30", "14:00"), slot("13:00", "15:00"), slot("14:00", "15:00"),
	}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, iv := range candidates {
			wg.Add(1)
			go func(iv booking.Interval) {
				defer wg.Done()
				_, err := f.svc.Create(ctx, uuid.New(), booking.CreateInput{FieldID: f.fieldID, Date: testDate, Interval: iv})
				if err != nil && !errors.Is(err, booking.ErrConflict) {
					t.Errorf("unexpected error: %v", err)
				}
			}(iv)
		}
	}
	wg.Wait()

	slots, err := f.repo.ListActiveSlots(ctx, f.fieldID, testDate)
	if err != nil {
		t.Fatalf("list slots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected at least one booking")
	}
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				t.Fatalf("active bookings overlap: %s and %s", slots[i], slots[j])
			}
		}
	}
}

func TestGetBookedSlotsExcludesCancelledAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.userID, slot("16:00", "17:00"))
	mid := f.create(t, f.userID, slot("12:00", "13:00"))
	f.create(t, f.userID, slot("09:00", "10:00"))

	if _, err := f.svc.Cancel(ctx, mid.ID, f.user()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	slots, err := f.svc.GetBookedSlots(ctx, f.fieldID, testDate)
	if err != nil {
		t.Fatalf("get booked slots failed: %v", err)
	}
	want := []booking.Interval{slot("09:00", "10:00"), slot("16:00", "17:00")}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	}

	if _, err := f.svc.GetBookedSlots(ctx, uuid.New(), testDate); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown field, got %v", err)
	}
}

func TestGetBookedSlotsCacheIsInvalidatedOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.userID, slot("09:00", "10:00"))
	if _, err := f.svc.GetBookedSlots(ctx, f.fieldID, testDate); err != nil {
		t.Fatalf("get booked slots failed: %v", err)
	}
	if f.cache.sets != 1 {
		t.Fatalf("expected slots to be cached, got %d sets", f.cache.sets)
	}

	f.create(t, f.userID, slot("10:00", "11:00"))

	slots, err := f.svc.GetBookedSlots(ctx, f.fieldID, testDate)
	if err != nil {
		t.Fatalf("get booked slots failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected fresh slots after create, got %v", slots)
	}
}

// pausingRepo blocks the first ListActiveSlots after it has read the store, so a
// write can commit between the read and the cache fill.
type pausingRepo struct {
	booking.Repository
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingRepo) ListActiveSlots(ctx context.Context, fieldID uuid.UUID, date booking.Date) ([]booking.Interval, error) {
	slots, err := p.Repository.ListActiveSlots(ctx, fieldID, date)
	p.once.Do(func() {
		close(p.read)
		<-p.resume
	})
	return slots, err
}

func TestGetBookedSlotsDoesNotCacheListReadBeforeCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repo := &pausingRepo{Repository: f.repo, read: make(chan struct{}), resume: make(chan struct{})}
	svc := booking.NewService(repo, f.repo, f.cache, f.events)

	stale := make(chan []booking.Interval, 1)
	go func() {
		slots, err := svc.GetBookedSlots(ctx, f.fieldID, testDate)
		if err != nil {
			t.Errorf("get booked slots failed: %v", err)
		}
		stale <- slots
	}()

	<-repo.read
	if _, err := svc.Create(ctx, f.userID, booking.CreateInput{
		FieldID:  f.fieldID,
		Date:     testDate,
		Interval: slot("10:00", "11:00"),
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	close(repo.resume)

	if got := <-stale; len(got) != 0 {
		t.Fatalf("expected the in-flight read to predate the create, got %v", got)
	}

	slots, err := svc.GetBookedSlots(ctx, f.fieldID, testDate)
	if err != nil {
		t.Fatalf("get booked slots failed: %v", err)
	}
	available, err := svc.CheckAvailability(ctx, f.fieldID, testDate, slot("10:00", "11:00"))
	if err != nil {
		t.Fatalf("check availability failed: %v", err)
	}
	if available || len(slots) != 1 || slots[0] != slot("10:00", "11:00") {
		t.Fatalf("slot list %v disagrees with availability %v", slots, available)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t, f.userID, slot("09:00", "10:00"))

	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusConfirmed, f.user()); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for booking user, got %v", err)
	}

	otherOwner := booking.Actor{UserID: uuid.New(), Role: booking.RoleOwner}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusConfirmed, otherOwner); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign owner, got %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusCompleted, f.owner()); !errors.Is(err, booking.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending->completed, got %v", err)
	}

	confirmed, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusConfirmed, f.owner())
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != booking.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusPending, f.owner()); !errors.Is(err, booking.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for confirmed->pending, got %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.Status("archived"), f.owner()); !errors.Is(err, booking.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}

	cancelled, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusCancelled, f.owner())
	if err != nil {
		t.Fatalf("cancel via status failed: %v", err)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusConfirmed, f.owner()); !errors.Is(err, booking.ErrInvalidState) {
		t.Fatalf("expected cancelled to be terminal, got %v", err)
	}
}

func TestConcurrentCancelOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, f.userID, slot("09:00", "10:00"))

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Cancel(context.Background(), b.ID, f.user())
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, booking.ErrInvalidState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one successful cancel, got %d", success)
	}
}

func TestVenueStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherVenue := uuid.New()
	otherField := uuid.New()
	f.repo.AddVenue(otherVenue, uuid.New(), "Otro", "Calle 1", "")
	f.repo.AddField(booking.Field{ID: otherField, VenueID: otherVenue, Name: "X", PricePerHour: 1000, IsAvailable: true})

	confirmed := f.create(t, f.userID, slot("09:00", "10:00"))  // 100
	confirmed2 := f.create(t, f.userID, slot("10:00", "12:30")) // 250
	f.create(t, f.userID, slot("13:00", "14:00"))               // pending
	cancelled := f.create(t, f.userID, slot("15:00", "16:00"))

	for _, id := range []uuid.UUID{confirmed.ID, confirmed2.ID} {
		if _, err := f.svc.UpdateStatus(ctx, id, booking.StatusConfirmed, f.owner()); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
	}
	if _, err := f.svc.Cancel(ctx, cancelled.ID, f.user()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// outside the range
	outside, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: f.fieldID, Date: testDate.AddDays(10), Interval: slot("09:00", "10:00")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, outside.ID, booking.StatusConfirmed, f.owner()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// other venue
	foreign, err := f.svc.Create(ctx, f.userID, booking.CreateInput{FieldID: otherField, Date: testDate, Interval: slot("09:00", "10:00")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, foreign.ID, booking.StatusConfirmed, booking.Actor{Role: booking.RoleAdmin}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	stats, err := f.svc.GetVenueStats(ctx, f.venueID, testDate, testDate.AddDays(1))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalBookings != 4 || stats.ConfirmedBookings != 2 || stats.PendingBookings != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalRevenue != 350 {
		t.Fatalf("expected revenue 350, got %v", stats.TotalRevenue)
	}

	if _, err := f.svc.GetVenueStats(ctx, f.venueID, testDate, testDate.AddDays(-1)); !errors.Is(err, booking.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for reversed range, got %v", err)
	}
	if _, err := f.svc.GetVenueStats(ctx, uuid.New(), testDate, testDate); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown venue, got %v", err)
	}
}

func TestGetBookingVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.create(t, f.userID, slot("09:00", "10:00"))

	for name, actor := range map[string]booking.Actor{
		"booking user": f.user(),
		"venue owner":  f.owner(),
		"admin":        {UserID: uuid.New(), Role: booking.RoleAdmin},
	} {
		if _, err := f.svc.GetBooking(ctx, b.ID, actor); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}

	if _, err := f.svc.GetBooking(ctx, b.ID, booking.Actor{UserID: uuid.New(), Role: booking.RoleUser}); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListVenueBookingsRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.userID, slot("09:00", "10:00"))

	list, err := f.svc.ListVenueBookings(ctx, f.venueID, f.owner())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].UserName == nil || *list[0].UserName != "Ana" {
		t.Fatalf("expected one booking with user projection, got %+v", list)
	}

	if _, err := f.svc.ListVenueBookings(ctx, f.venueID, booking.Actor{UserID: uuid.New(), Role: booking.RoleOwner}); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCompleteElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.create(t, f.userID, slot("09:00", "10:00"))
	future := f.create(t, f.userID, slot("20:00", "21:00"))
	pending := f.create(t, f.userID, slot("07:00", "08:00"))

	for _, id := range []uuid.UUID{past.ID, future.ID} {
		if _, err := f.svc.UpdateStatus(ctx, id, booking.StatusConfirmed, f.owner()); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
	}

	before := len(f.events.events)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n, err := f.svc.CompleteElapsed(ctx, now)
	if err != nil {
		t.Fatalf("complete elapsed failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}

	events := f.events.events[before:]
	if len(events) != 1 {
		t.Fatalf("expected one event for the completed booking, got %+v", events)
	}
	if e := events[0]; e.Type != booking.EventBookingStatusChanged || e.BookingID != past.ID ||
		e.Status != booking.StatusCompleted || e.FieldID != f.fieldID || e.Slot != past.Interval() {
		t.Fatalf("unexpected completion event: %+v", e)
	}

	for id, want := range map[uuid.UUID]booking.Status{
		past.ID:    booking.StatusCompleted,
		future.ID:  booking.StatusConfirmed,
		pending.ID: booking.StatusPending,
	} {
		b, err := f.repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if b.Status != want {
			t.Errorf("booking %s: expected %s, got %s", id, want, b.Status)
		}
	}
}

func TestCompleteElapsedUsesVenueTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc := time.FixedZone("ART", -3*3600)
	f.svc.WithLocation(loc)

	b := f.create(t, f.userID, slot("20:00", "21:00"))
	if _, err := f.svc.UpdateStatus(ctx, b.ID, booking.StatusConfirmed, f.owner()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// 23:30 UTC is 20:30 local: the slot has not ended yet
	n, err := f.svc.CompleteElapsed(ctx, time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("complete elapsed failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing completed yet, got %d", n)
	}
}

// stubCache versions entries the same way RedisSlotCache does.
type stubCache struct {
	mu    sync.Mutex
	data  map[string][]booking.Interval
	gens  map[string]int64
	sets  int
	drops int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]booking.Interval), gens: make(map[string]int64)}
}

func cacheKey(fieldID uuid.UUID, date booking.Date) string {
	return fieldID.String() + ":" + date.String()
}

func (c *stubCache) Get(_ context.Context, fieldID uuid.UUID, date booking.Date) ([]booking.Interval, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(fieldID, date)
	gen := c.gens[key]
	slots, ok := c.data[fmt.Sprintf("%s:%d", key, gen)]
	return slots, gen, ok
}

func (c *stubCache) Set(_ context.Context, fieldID uuid.UUID, date booking.Date, gen int64, slots []booking.Interval) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[fmt.Sprintf("%s:%d", cacheKey(fieldID, date), gen)] = slots
}

func (c *stubCache) Invalidate(_ context.Context, fieldID uuid.UUID, date booking.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drops++
	c.gens[cacheKey(fieldID, date)]++
}

type stubPublisher struct {
	mu     sync.Mutex
	events []booking.ScheduleEvent
}

func (p *stubPublisher) PublishScheduleEvent(_ context.Context, e booking.ScheduleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}
