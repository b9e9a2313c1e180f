package booking_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/domain/booking"
	"github.com/canchas/canchas-api/internal/middleware"
	"github.com/canchas/canchas-api/internal/pkg/jwt"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type apiFixture struct {
	*fixture
	router     http.Handler
	userToken  string
	ownerToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := newFixture(t)

	jwtSvc := jwt.NewService("booking-handler-secret", time.Hour)
	userToken, err := jwtSvc.GenerateAccessToken(f.userID, booking.RoleUser)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	ownerToken, err := jwtSvc.GenerateAccessToken(f.ownerID, booking.RoleOwner)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	h := booking.NewHandler(f.svc)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/v1/bookings", h.Routes(middleware.Auth(jwtSvc)))
	r.Route("/api/v1/fields", h.FieldRoutes)

	return &apiFixture{fixture: f, router: r, userToken: userToken, ownerToken: ownerToken}
}

func (a *apiFixture) do(t *testing.T, token, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v (%s)", err, w.Body.String())
	}
	return w, resp
}

func (a *apiFixture) createBody(start, end string) map[string]interface{} {
	return map[string]interface{}{
		"field_id":       a.fieldID.String(),
		"booking_date":   "2024-06-01",
		"start_time":     start,
		"end_time":       end,
		"payment_method": "cash",
	}
}

func TestBookingEndpoints(t *testing.T) {
	a := newAPIFixture(t)
	var bookingID uuid.UUID

	t.Run("POST /bookings requires auth", func(t *testing.T) {
		w, _ := a.do(t, "", http.MethodPost, "/api/v1/bookings", a.createBody("10:00", "12:00"))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("POST /bookings creates pending booking", func(t *testing.T) {
		w, resp := a.do(t, a.userToken, http.MethodPost, "/api/v1/bookings", a.createBody("10:00", "12:00"))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var b booking.Booking
		if err := json.Unmarshal(resp.Data, &b); err != nil {
			t.Fatalf("decode booking failed: %v", err)
		}
		if b.Status != booking.StatusPending || b.TotalPrice != 200 {
			t.Fatalf("unexpected booking: %+v", b)
		}
		if b.StartTime != booking.MustTimeOfDay("10:00") || b.BookingDate.String() != "2024-06-01" {
			t.Fatalf("unexpected slot: %s %s", b.BookingDate, b.Interval())
		}
		bookingID = b.ID
	})

	t.Run("POST /bookings overlapping is 409", func(t *testing.T) {
		w, resp := a.do(t, a.userToken, http.MethodPost, "/api/v1/bookings", a.createBody("11:00", "13:00"))
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if resp.Error == nil || resp.Error.Code != "SLOT_UNAVAILABLE" {
			t.Fatalf("expected SLOT_UNAVAILABLE, got %+v", resp.Error)
		}
	})

	t.Run("POST /bookings reversed interval is 400", func(t *testing.T) {
		w, resp := a.do(t, a.userToken, http.MethodPost, "/api/v1/bookings", a.createBody("15:00", "14:00"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if resp.Error == nil || resp.Error.Code != "INVALID_INTERVAL" {
			t.Fatalf("expected INVALID_INTERVAL, got %+v", resp.Error)
		}
	})

	t.Run("POST /bookings malformed body is 422", func(t *testing.T) {
		body := a.createBody("9", "10:00")
		body["booking_date"] = "tomorrow"
		w, resp := a.do(t, a.userToken, http.MethodPost, "/api/v1/bookings", body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
		if _, ok := resp.Error.Details["booking_date"]; !ok {
			t.Fatalf("expected booking_date detail, got %+v", resp.Error.Details)
		}
	})

	t.Run("GET /fields/{id}/booked-slots is public", func(t *testing.T) {
		w, resp := a.do(t, "", http.MethodGet, "/api/v1/fields/"+a.fieldID.String()+"/booked-slots?date=2024-06-01", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var slots booking.BookedSlotsResponse
		if err := json.Unmarshal(resp.Data, &slots); err != nil {
			t.Fatalf("decode slots failed: %v", err)
		}
		if len(slots.Slots) != 1 || slots.Slots[0] != slot("10:00", "12:00") {
			t.Fatalf("unexpected slots: %+v", slots.Slots)
		}
	})

	t.Run("POST /fields/{id}/availability touching slot", func(t *testing.T) {
		body := map[string]string{"date": "2024-06-01", "start_time": "12:00", "end_time": "13:00"}
		w, resp := a.do(t, "", http.MethodPost, "/api/v1/fields/"+a.fieldID.String()+"/availability", body)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var out booking.AvailabilityResponse
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			t.Fatalf("decode availability failed: %v", err)
		}
		if !out.Available {
			t.Fatal("expected touching slot to be available")
		}
	})

	t.Run("PUT /bookings/{id}/status by user is 403", func(t *testing.T) {
		w, _ := a.do(t, a.userToken, http.MethodPut, "/api/v1/bookings/"+bookingID.String()+"/status", map[string]string{"status": "confirmed"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("PUT /bookings/{id}/status by owner", func(t *testing.T) {
		w, _ := a.do(t, a.ownerToken, http.MethodPut, "/api/v1/bookings/"+bookingID.String()+"/status", map[string]string{"status": "confirmed"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("GET /bookings/venue/{id}/stats", func(t *testing.T) {
		path := "/api/v1/bookings/venue/" + a.venueID.String() + "/stats?start_date=2024-06-01&end_date=2024-06-30"
		w, resp := a.do(t, a.ownerToken, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var stats booking.Stats
		if err := json.Unmarshal(resp.Data, &stats); err != nil {
			t.Fatalf("decode stats failed: %v", err)
		}
		if stats.ConfirmedBookings != 1 || stats.TotalRevenue != 200 {
			t.Fatalf("unexpected stats: %+v", stats)
		}
	})

	t.Run("GET /bookings/my", func(t *testing.T) {
		w, resp := a.do(t, a.userToken, http.MethodGet, "/api/v1/bookings/my", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var list []booking.Booking
		if err := json.Unmarshal(resp.Data, &list); err != nil {
			t.Fatalf("decode list failed: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 booking, got %d", len(list))
		}
	})

	t.Run("PUT /bookings/{id}/cancel twice", func(t *testing.T) {
		path := "/api/v1/bookings/" + bookingID.String() + "/cancel"
		w, _ := a.do(t, a.userToken, http.MethodPut, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		w, resp := a.do(t, a.userToken, http.MethodPut, path, nil)
		if w.Code != http.StatusConflict || resp.Error.Code != "INVALID_STATE" {
			t.Fatalf("expected 409 INVALID_STATE, got %d %+v", w.Code, resp.Error)
		}
	})

	t.Run("GET /bookings/{id} unknown is 404", func(t *testing.T) {
		w, _ := a.do(t, a.userToken, http.MethodGet, "/api/v1/bookings/"+uuid.New().String(), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}
