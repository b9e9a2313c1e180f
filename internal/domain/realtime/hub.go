package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/canchas/canchas-api/internal/domain/booking"
)

const fieldChannelPrefix = "booking:schedule:"

var (
	wsConnectionsGauge   = expvar.NewInt("schedule_ws_connections")
	wsEventsSentTotal    = expvar.NewInt("schedule_ws_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("schedule_ws_events_dropped_total")
)

// Connection is one websocket client watching a field's schedule
type Connection struct {
	FieldID uuid.UUID
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
}

// Hub fans schedule events out to websocket clients. With Redis every API instance
// receives every event through pub/sub; without it delivery is local only.
type Hub struct {
	fields map[uuid.UUID]map[*Connection]bool
	mu     sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan registration
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. redisClient may be nil.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		fields:     make(map[uuid.UUID]map[*Connection]bool),
		redis:      redisClient,
		register:   make(chan registration),
		unregister: make(chan *Connection),
		ctx:        ctx,
		cancel:     cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, fieldChannelPrefix+"*")
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case reg := <-h.register:
			conn := reg.conn
			h.mu.Lock()
			if h.fields[conn.FieldID] == nil {
				h.fields[conn.FieldID] = make(map[*Connection]bool)
			}
			h.fields[conn.FieldID][conn] = true
			h.mu.Unlock()
			close(reg.done)
			wsConnectionsGauge.Add(1)
			log.Debug().Str("field_id", conn.FieldID.String()).Msg("Schedule watcher connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.fields[conn.FieldID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.fields, conn.FieldID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("field_id", conn.FieldID.String()).Msg("Schedule watcher disconnected")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !strings.HasPrefix(msg.Channel, fieldChannelPrefix) {
				continue
			}
			fieldID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, fieldChannelPrefix))
			if err != nil {
				continue
			}
			h.broadcastLocal(fieldID, []byte(msg.Payload))
		}
	}
}

// broadcastLocal sends data to clients connected to this instance
func (h *Hub) broadcastLocal(fieldID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.fields[fieldID] {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			// slow client, drop rather than block the hub
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("field_id", fieldID.String()).Msg("WebSocket send buffer full")
		}
	}
}

type registration struct {
	conn *Connection
	done chan struct{}
}

// Register adds a connection. It returns once broadcasts reach conn, so a
// snapshot read afterwards cannot miss a later event.
func (h *Hub) Register(conn *Connection) {
	reg := registration{conn: conn, done: make(chan struct{})}
	select {
	case h.register <- reg:
	case <-h.ctx.Done():
		return
	}
	select {
	case <-reg.done:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// PublishScheduleEvent delivers a committed schedule change to every watcher of the field.
func (h *Hub) PublishScheduleEvent(ctx context.Context, event booking.ScheduleEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal schedule event")
		return
	}

	if h.redis != nil {
		if err := publishRedis(ctx, h.redis, event.FieldID, data); err == nil {
			return
		}
		// fall back to local delivery
	}

	h.broadcastLocal(event.FieldID, data)
}

func publishRedis(ctx context.Context, client *redis.Client, fieldID uuid.UUID, data []byte) error {
	channel := fieldChannelPrefix + fieldID.String()
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Redis publish failed")
		return err
	}
	return nil
}

// RedisPublisher announces schedule events to the hubs of every API instance.
// Processes without websocket clients, such as the completion worker, use it
// instead of a Hub.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher. A nil client makes it a no-op.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishScheduleEvent(ctx context.Context, event booking.ScheduleEvent) {
	if p.client == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal schedule event")
		return
	}
	_ = publishRedis(ctx, p.client, event.FieldID, data)
}

// WatcherCount returns the number of local connections watching field
func (h *Hub) WatcherCount(fieldID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.fields[fieldID])
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
