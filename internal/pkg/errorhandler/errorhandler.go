package errorhandler

import (
	"context"
	"net/http"

	"github.com/canchas/canchas-api/internal/pkg/logger"
	"github.com/canchas/canchas-api/internal/pkg/response"
)

type contextKey string

// RequestIDKey holds the request id set by the RequestID middleware.
const RequestIDKey contextKey = "request_id"

// WithRequestID stores the request id for error responses.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID returns the request id from ctx, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// HandleError logs err and sends an error response. Server errors hide the cause
// from the client and carry the request id instead.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	l := logger.FromContext(ctx)
	event := l.Warn()
	if status >= http.StatusInternalServerError {
		event = l.Error()
	}

	event.
		Str("error_code", code).
		Int("status_code", status).
		Err(err).
		Msg(message)

	if status >= http.StatusInternalServerError {
		response.ErrorWithRequestID(w, status, code, message, RequestID(ctx))
		return
	}
	response.Error(w, status, code, message)
}

// HandleValidationError logs field errors and sends a 422 response.
func HandleValidationError(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	logger.FromContext(ctx).Warn().
		Interface("validation_errors", fieldErrors).
		Msg("Validation error")

	response.ValidationError(w, fieldErrors)
}

// HandlePanic logs a recovered panic with its stack and sends a 500.
func HandlePanic(ctx context.Context, w http.ResponseWriter, panicErr interface{}, stackTrace string) {
	logger.FromContext(ctx).Error().
		Interface("panic_error", panicErr).
		Str("panic_stack", stackTrace).
		Msg("Request panic")

	response.ErrorWithRequestID(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", RequestID(ctx))
}
