package booking

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SlotCache caches booked slots per (field, date). It is best-effort: failures are
// logged and the caller falls back to the repository. Availability checks never read it.
//
// Entries are versioned by a per-(field, date) generation. Get reports the generation
// current at read time and Set stores under that generation, so a list read from the
// repository before an Invalidate can never be served after it.
type SlotCache interface {
	Get(ctx context.Context, fieldID uuid.UUID, date Date) (slots []Interval, gen int64, ok bool)
	Set(ctx context.Context, fieldID uuid.UUID, date Date, gen int64, slots []Interval)
	Invalidate(ctx context.Context, fieldID uuid.UUID, date Date)
}

const (
	slotCacheKeyPrefix = "booking:slots:"
	slotGenKeyPrefix   = "booking:slots:gen:"

	// generations must outlive every entry stored under them
	minGenTTL = 24 * time.Hour
)

type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
	genTTL time.Duration
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	genTTL := minGenTTL
	if 2*ttl > genTTL {
		genTTL = 2 * ttl
	}
	return &RedisSlotCache{client: client, ttl: ttl, genTTL: genTTL}
}

func slotGenKey(fieldID uuid.UUID, date Date) string {
	return slotGenKeyPrefix + scheduleKey(fieldID, date)
}

func slotCacheKey(fieldID uuid.UUID, date Date, gen int64) string {
	return slotCacheKeyPrefix + scheduleKey(fieldID, date) + ":" + strconv.FormatInt(gen, 10)
}

// generation returns the current generation; a missing counter is generation 0.
func (c *RedisSlotCache) generation(ctx context.Context, fieldID uuid.UUID, date Date) (int64, error) {
	gen, err := c.client.Get(ctx, slotGenKey(fieldID, date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisSlotCache) Get(ctx context.Context, fieldID uuid.UUID, date Date) ([]Interval, int64, bool) {
	gen, err := c.generation(ctx, fieldID, date)
	if err != nil {
		log.Warn().Err(err).Str("field_id", fieldID.String()).Msg("slot cache generation read failed")
		// -1 is never stored, so the caller's Set becomes a no-op
		return nil, -1, false
	}

	data, err := c.client.Get(ctx, slotCacheKey(fieldID, date, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("field_id", fieldID.String()).Msg("slot cache read failed")
		}
		return nil, gen, false
	}

	var slots []Interval
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, gen, false
	}
	return slots, gen, true
}

func (c *RedisSlotCache) Set(ctx context.Context, fieldID uuid.UUID, date Date, gen int64, slots []Interval) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slotCacheKey(fieldID, date, gen), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("field_id", fieldID.String()).Msg("slot cache write failed")
	}
}

// Invalidate bumps the generation, orphaning every entry stored under older ones.
func (c *RedisSlotCache) Invalidate(ctx context.Context, fieldID uuid.UUID, date Date) {
	genKey := slotGenKey(fieldID, date)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, c.genTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("field_id", fieldID.String()).Msg("slot cache invalidation failed")
		return
	}

	// the previous entry can never be read again; drop it early
	if prev := incr.Val() - 1; prev >= 0 {
		c.client.Del(ctx, slotCacheKey(fieldID, date, prev))
	}
}
