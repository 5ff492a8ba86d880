package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// GenerateRequestID creates a new request id
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context with the given request ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context, "" when absent
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithUserID records the authenticated user on the context
func ContextWithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the authenticated user recorded on the context
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey).(uint)
	return id, ok
}

// Ctx returns the global logger with request_id and user_id attached when present
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()
	if ctx == nil {
		return &logger
	}

	lc := logger.With()
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		lc = lc.Str("request_id", requestID)
	}
	if userID, ok := UserIDFromContext(ctx); ok {
		lc = lc.Uint("user_id", userID)
	}
	logger = lc.Logger()
	return &logger
}
