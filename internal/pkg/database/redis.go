package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig configures the client shared by the slot cache, schedule
// fan-out and completion wakeups.
type RedisConfig struct {
	URL      string
	PoolSize int

	// ConnectAttempts bounds start-up pings, with RetryDelay growing linearly between them.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// NewRedis creates a Redis client and waits until it answers a ping.
// Returns nil if the URL is empty: the slot cache and cross-instance
// schedule fan-out are then disabled and the API serves from Postgres only.
func NewRedis(cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		log.Warn().Msg("Redis URL not configured, running without slot cache and pub/sub")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 20
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.MinIdleConns = opt.PoolSize / 4
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	client := redis.NewClient(opt)

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), opt.DialTimeout)
		err := PingRedis(ctx, client)
		cancel()
		if err == nil {
			break
		}
		if attempt >= attempts {
			client.Close()
			return nil, fmt.Errorf("ping redis %s after %d attempts: %w", opt.Addr, attempt, err)
		}

		wait := time.Duration(attempt) * delay
		log.Warn().
			Err(err).
			Str("addr", opt.Addr).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Redis not ready")
		time.Sleep(wait)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int("pool_size", opt.PoolSize).
		Msg("Connected to Redis")
	return client, nil
}

// PingRedis reports whether Redis answers. A nil client means Redis is disabled and is not an error.
func PingRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// CloseRedis closes the Redis connection
func CloseRedis(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
		return
	}
	log.Info().Msg("Redis connection closed")
}
