package notifier

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Log writes messages to the application log instead of delivering them.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a notifier that only logs.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs body and returns a random delivery identifier.
func (l *Log) Send(ctx context.Context, body, destination string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(destination) == "" {
		return "", ErrNotConfigured
	}

	id := uuid.New().String()
	l.logger.Info("message logged",
		zap.String("delivery_id", id),
		zap.String("destination", destination),
		zap.String("body", body),
	)
	return id, nil
}
