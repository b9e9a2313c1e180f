package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/pkg/errorhandler"
	"github.com/canchas/canchas-api/internal/pkg/logger"
)

// RequestID adds a unique request ID to each request and a request-scoped logger to its context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check if request ID already exists
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := errorhandler.WithRequestID(r.Context(), requestID)
		ctx = logger.WithRequestID(ctx, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Timeout adds a timeout to requests
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "Request timeout")
	}
}
