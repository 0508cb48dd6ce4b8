package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a wallet holder. The document is the natural key used by
// callers; the phone acts as a weak shared secret for credential lookups.
type Client struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Document  string
	Names     string
	Email     string
	Phone     string
	Balance   decimal.Decimal
}
