// Package notify delivers confirmation tokens to clients. Delivery is
// best-effort: the payment engine logs failures but never rolls back a
// session because an email bounced.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresmz/walletcore/internal/logger"
)

// Delivery describes one token hand-off to a client.
type Delivery struct {
	Email     string
	Names     string
	Token     string
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// Dispatcher sends the token to its recipient. Implementations are
// swappable without touching the payment engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}

// LogDispatcher writes deliveries to the log. Used in development and
// whenever SMTP is not configured.
type LogDispatcher struct {
	Logger logger.Logger
}

func (d *LogDispatcher) Dispatch(ctx context.Context, delivery Delivery) error {
	d.Logger.Info("token delivery (log only)",
		"email", delivery.Email,
		"session_id", delivery.SessionID,
		"token", delivery.Token,
	)
	return nil
}
