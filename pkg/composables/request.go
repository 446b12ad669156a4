package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/pkg/constants"
)

var (
	ErrNoLogger    = errors.New("logger not found")
	ErrNoRequestID = errors.New("request id not found")
)

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context.
// When no logger is attached, the standard logrus logger is used.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithRequestID stores the correlation id sent with backend calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, id)
}

// UseRequestID returns the request id stored in ctx or ErrNoRequestID.
func UseRequestID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(constants.RequestIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoRequestID
	}
	return id, nil
}

// EnsureRequestID returns ctx with a request id, generating one when missing.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, err := UseRequestID(ctx); err == nil {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
