package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDisabled = "disabled"
)

// Health is the /health payload
type Health struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// CheckHealth pings the backing stores. Redis being down degrades the API
// (no cache, local-only fan-out) but only Postgres makes it unhealthy.
func CheckHealth(ctx context.Context, db *sqlx.DB, rdb *redis.Client) (Health, bool) {
	h := Health{Status: "ok", Postgres: statusDisabled, Redis: statusDisabled}
	healthy := true

	if db != nil {
		h.Postgres = statusUp
		if err := db.PingContext(ctx); err != nil {
			h.Postgres = statusDown
			h.Status = "unavailable"
			healthy = false
		}
	}

	if rdb != nil {
		h.Redis = statusUp
		if err := PingRedis(ctx, rdb); err != nil {
			h.Redis = statusDown
			if healthy {
				h.Status = "degraded"
			}
		}
	}

	return h, healthy
}
