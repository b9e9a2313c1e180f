package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/canchas/canchas-api/internal/config"
	"github.com/canchas/canchas-api/internal/domain/booking"
	"github.com/canchas/canchas-api/internal/domain/realtime"
	"github.com/canchas/canchas-api/internal/pkg/database"
	"github.com/canchas/canchas-api/internal/pkg/logger"
)

// wakeChannel lets operators trigger an immediate pass: PUBLISH booking:completion:run ""
const wakeChannel = "booking:completion:run"

func main() {
	once := flag.Bool("once", false, "complete elapsed bookings once and exit")
	flag.Parse()

	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("timezone", cfg.VenueTimezone).
		Dur("interval", cfg.CompletionInterval).
		Msg("Starting completion-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.Redis())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	var slotCache booking.SlotCache
	if rdb != nil {
		slotCache = booking.NewRedisSlotCache(rdb, cfg.SlotCacheTTL)
	}

	// Completion never needs ownership checks; watchers hear about it through the API hubs
	svc := booking.NewService(booking.NewRepository(db), nil, slotCache, realtime.NewRedisPublisher(rdb)).
		WithLocation(cfg.Location())
	worker := booking.NewWorker(svc, cfg.CompletionInterval)

	if *once {
		worker.RunOnce()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wake := make(chan struct{}, 1)
	if rdb != nil {
		go subscribeWakeups(ctx, rdb, wake)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(cfg.CompletionInterval)
	defer ticker.Stop()

	worker.RunOnce()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("completion-worker stopped")
			return
		case <-wake:
			// immediate pass
		case <-ticker.C:
		}

		start := time.Now()
		worker.RunOnce()
		log.Debug().Dur("took", time.Since(start)).Msg("Completion pass done")
	}
}

func subscribeWakeups(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, wakeChannel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			// non-blocking wake-up
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
