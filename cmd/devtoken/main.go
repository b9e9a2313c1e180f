package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/config"
	"github.com/canchas/canchas-api/internal/pkg/database"
	"github.com/canchas/canchas-api/internal/pkg/jwt"
)

// devtoken prints an access token for a local user so the API can be exercised
// without the auth service. Usage:
//
//	go run ./cmd/devtoken -email owner@canchas.test
//	go run ./cmd/devtoken -user-id 6f1c... -role admin
func main() {
	email := flag.String("email", "", "look the user up by email")
	userID := flag.String("user-id", "", "user id (skips the database lookup)")
	role := flag.String("role", "", "role claim; defaults to the stored role, or user")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to JWT_ACCESS_TTL")
	flag.Parse()

	cfg := config.Load()
	if cfg.IsProduction() {
		log.Fatal("devtoken refuses to run with ENV=production")
	}

	if *ttl <= 0 {
		*ttl = cfg.JWTAccessTTL
	}

	var id uuid.UUID
	userRole := *role

	switch {
	case *userID != "":
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
		id = parsed

	case *email != "":
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.ClosePostgres(db)

		var row struct {
			ID   uuid.UUID `db:"id"`
			Role string    `db:"role"`
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = db.GetContext(ctx, &row, `SELECT id, role FROM users WHERE email = $1`, *email)
		if errors.Is(err, sql.ErrNoRows) {
			log.Fatalf("User %s not found", *email)
		}
		if err != nil {
			log.Fatalf("Failed to query user: %v", err)
		}
		id = row.ID
		if userRole == "" {
			userRole = row.Role
		}

	default:
		log.Fatal("Pass -email or -user-id")
	}

	if userRole == "" {
		userRole = "user"
	}

	token, err := jwt.NewService(cfg.JWTSecret, *ttl).GenerateAccessToken(id, userRole)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("user_id: %s\nrole:    %s\nexpires: %s\n\n%s\n", id, userRole, time.Now().Add(*ttl).Format(time.RFC3339), token)
}
