package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionKindDeposit  = "deposit"
	TransactionKindPurchase = "purchase"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is one row of the append-only ledger. Exactly one row is
// written per balance mutation and it is never updated afterwards.
// The current flows always write status 'completed'; the other statuses
// exist in the schema for asynchronous settlement later.
type Transaction struct {
	ID        uuid.UUID
	CreatedAt time.Time
	ClientID  uuid.UUID
	Kind      string
	Amount    decimal.Decimal
	Reference string
	Status    string
}
