package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/canchas/canchas-api/internal/config"
	"github.com/canchas/canchas-api/internal/domain/booking"
	"github.com/canchas/canchas-api/internal/domain/realtime"
	"github.com/canchas/canchas-api/internal/domain/venue"
	"github.com/canchas/canchas-api/internal/middleware"
	"github.com/canchas/canchas-api/internal/pkg/database"
	"github.com/canchas/canchas-api/internal/pkg/jwt"
	"github.com/canchas/canchas-api/internal/pkg/logger"
	"github.com/canchas/canchas-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("timezone", cfg.VenueTimezone).
		Msg("Starting Canchas API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redisClient, err := database.NewRedis(cfg.Redis())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	bookingRepo := booking.NewRepository(db)
	venueRepo := venue.NewRepository(db)

	// ---------- WebSocket hub ----------
	scheduleHub := realtime.NewHub(redisClient)
	go scheduleHub.Run()
	defer scheduleHub.Shutdown()

	// ---------- Services ----------
	var slotCache booking.SlotCache
	if redisClient != nil {
		slotCache = booking.NewRedisSlotCache(redisClient, cfg.SlotCacheTTL)
	}

	bookingService := booking.NewService(bookingRepo, &ownershipAdapter{repo: venueRepo}, slotCache, scheduleHub).
		WithLocation(cfg.Location())
	venueService := venue.NewService(venueRepo)

	completionWorker := booking.NewWorker(bookingService, cfg.CompletionInterval)
	completionWorker.Start()
	defer completionWorker.Stop()

	// ---------- Handlers ----------
	handlers := routeHandlers{
		booking:  booking.NewHandler(bookingService),
		venue:    venue.NewHandler(venueService),
		realtime: realtime.NewHandler(scheduleHub, bookingService, cfg.AllowedOrigins),
		health: func(ctx context.Context) (database.Health, bool) {
			return database.CheckHealth(ctx, db, redisClient)
		},
	}

	r := newRouter(cfg, jwtService, handlers)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type routeHandlers struct {
	booking  *booking.Handler
	venue    *venue.Handler
	realtime *realtime.Handler

	// health is optional; without it /health only reports the process is up
	health func(ctx context.Context) (database.Health, bool)
}

func newRouter(cfg *config.Config, jwtService *jwt.Service, h routeHandlers) chi.Router {
	authMiddleware := middleware.Auth(jwtService)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (no write timeout)
	r.Mount("/ws", h.realtime.Routes(middleware.AuthWebSocket(jwtService)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.health == nil {
			response.OK(w, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status, ok := h.health(ctx)
		if !ok {
			response.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		response.OK(w, status)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Mount("/bookings", h.booking.Routes(authMiddleware))
		r.Mount("/venues", h.venue.Routes(authMiddleware))
		r.Route("/fields", func(r chi.Router) {
			h.booking.FieldRoutes(r)
			h.venue.FieldRoutes(r, authMiddleware)
		})
	})

	return r
}

// ownershipAdapter answers ownership questions for the booking engine from the
// venue catalog, translating catalog errors into booking error kinds.
type ownershipAdapter struct {
	repo venue.Repository
}

func (a *ownershipAdapter) FieldOwner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	ownerID, err := a.repo.FieldOwner(ctx, fieldID)
	return ownerID, translateVenueError(err)
}

func (a *ownershipAdapter) VenueOwner(ctx context.Context, venueID uuid.UUID) (uuid.UUID, error) {
	ownerID, err := a.repo.VenueOwner(ctx, venueID)
	return ownerID, translateVenueError(err)
}

func translateVenueError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, venue.ErrFieldNotFound):
		return booking.ErrFieldNotFound
	case errors.Is(err, venue.ErrVenueNotFound):
		return booking.ErrVenueNotFound
	default:
		return fmt.Errorf("%w: %w", booking.ErrInfrastructure, err)
	}
}
