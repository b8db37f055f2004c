// Package notifier delivers formatted shopping lists to the household.
package notifier

import (
	"context"
	"errors"
)

// Notifier errors.
var (
	ErrNotConfigured  = errors.New("notifier not configured")
	ErrDeliveryFailed = errors.New("message delivery failed")
)

// Notifier sends a message body to a destination and returns the
// provider's delivery identifier.
type Notifier interface {
	Send(ctx context.Context, body, destination string) (string, error)
}
