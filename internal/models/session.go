package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionLifetime is the wall-clock window a payment session stays
// confirmable. Not renewable.
const SessionLifetime = 5 * time.Minute

const (
	SessionStatusPending   = "pending"
	SessionStatusCompleted = "completed"
	SessionStatusExpired   = "expired"
)

// PaymentSession binds a client (by document and phone), an amount and a
// one-time confirmation token for a single two-step payment attempt.
type PaymentSession struct {
	ID        uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	Document  string
	Phone     string
	Amount    decimal.Decimal
	Token     string
	Status    string
}

// Expired reports whether the session deadline passed at the given moment.
// Stores may drop expired rows on their own, but the engine always calls
// this itself since deletion timing is not guaranteed.
func (s PaymentSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
