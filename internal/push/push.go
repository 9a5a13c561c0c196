// Package push delivers composed notifications to device tokens.
package push

import (
	"context"
	"errors"
)

// ErrTokenInvalid marks a delivery failure caused by a permanently dead
// device token (app uninstalled, endpoint disabled/deleted). The engine
// clears the token; everything else is treated as transient.
var ErrTokenInvalid = errors.New("push token is no longer valid")

// Notification is the composed message delivered to a device.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Pusher is the delivery collaborator. Implementations: SNS platform
// endpoints (production), log-only (development).
type Pusher interface {
	Push(ctx context.Context, token string, n Notification) error
}

// IsTokenInvalid reports whether err classifies as permanent token death.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenInvalid)
}
