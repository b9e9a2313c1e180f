package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/canchas/canchas-api/internal/domain/booking"
	"github.com/canchas/canchas-api/internal/middleware"
	"github.com/canchas/canchas-api/internal/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// EventSnapshot is sent once on connect when the client asks for a date.
const EventSnapshot = "snapshot"

// Snapshot carries the booked slots of the watched field on one date
type Snapshot struct {
	Type    string             `json:"type"`
	FieldID uuid.UUID          `json:"field_id"`
	Date    booking.Date       `json:"date"`
	Slots   []booking.Interval `json:"slots"`
}

// SlotLister is the part of the booking service the stream needs
type SlotLister interface {
	GetBookedSlots(ctx context.Context, fieldID uuid.UUID, date booking.Date) ([]booking.Interval, error)
}

// Handler serves the schedule websocket
type Handler struct {
	hub      *Hub
	slots    SlotLister
	upgrader websocket.Upgrader
}

// NewHandler creates schedule stream handler
func NewHandler(hub *Hub, slots SlotLister, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		slots: slots,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Allow all when no origins are configured
				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// WatchField handles WS /ws/fields/{id}?date=YYYY-MM-DD
//
// The watcher is registered before the snapshot is read, so every change
// committed after the read is streamed after it. Changes committed between
// registration and the read may be both in the snapshot and streamed;
// clients apply events idempotently.
func (h *Handler) WatchField(w http.ResponseWriter, r *http.Request) {
	fieldID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	var (
		date     booking.Date
		withDate bool
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = booking.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, "Invalid date (YYYY-MM-DD)")
			return
		}
		withDate = true

		// resolve the field while errors can still be sent as HTTP
		if _, err := h.slots.GetBookedSlots(r.Context(), fieldID, date); err != nil {
			writeLookupError(w, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Connection{
		FieldID: fieldID,
		UserID:  middleware.GetUserID(r.Context()),
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
	}

	h.hub.Register(client)

	var first []byte
	if withDate {
		// the request context ends with the upgrade handler
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		slots, err := h.slots.GetBookedSlots(ctx, fieldID, date)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("field_id", fieldID.String()).Msg("Schedule snapshot failed")
			h.hub.Unregister(client)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot unavailable"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		first, err = json.Marshal(Snapshot{Type: EventSnapshot, FieldID: fieldID, Date: date, Slots: slots})
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal schedule snapshot")
		}
	}

	go h.wsReader(client)
	go h.wsWriter(client, first)
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, booking.ErrInvalidInterval):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// wsReader only services control frames; clients do not send commands.
func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("field_id", client.FieldID.String()).Msg("WebSocket read error")
			}
			return
		}
	}
}

// wsWriter writes first, when set, ahead of anything queued on Send.
func (h *Handler) wsWriter(client *Connection, first []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	if first != nil {
		client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteMessage(websocket.TextMessage, first); err != nil {
			return
		}
	}

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
