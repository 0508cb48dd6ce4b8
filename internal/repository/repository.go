package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresmz/walletcore/internal/models"
)

type CreateClientParams struct {
	Document string
	Names    string
	Email    string
	Phone    string
}

// Client repository interface
type ClientRepo interface {
	// Create client with zero balance
	// If a client with the document or email exists already has to return
	// apperrors.ErrClientExists
	CreateClient(ctx context.Context, arg CreateClientParams) (models.Client, error)

	// Get client by its document
	// If client not found must return apperrors.ErrClientNotFound
	GetClientByDocument(ctx context.Context, document string) (models.Client, error)

	// Get client by document and phone together. The phone acts as a weak
	// shared secret, so a wrong phone is indistinguishable from a missing
	// client: both return apperrors.ErrClientNotFound
	GetClientByCredentials(ctx context.Context, document string, phone string) (models.Client, error)
}

// Ledger repository interface
// Every balance mutation appends exactly one transaction row in the same
// logical unit as the balance write.
type LedgerRepo interface {
	// Add amount to the client balance and append a deposit transaction
	Credit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal, reference string) (models.Client, models.Transaction, error)

	// Subtract amount from the client balance and append a purchase
	// transaction. The update is guarded: if the stored balance is lower
	// than amount must return apperrors.ErrInsufficientFunds and write
	// nothing, even under concurrent mutation of the same client
	Debit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal, reference string) (models.Client, models.Transaction, error)

	// List client transactions newest first
	ListTransactions(ctx context.Context, clientID uuid.UUID, limit int) ([]models.Transaction, error)
}

type CreateSessionParams struct {
	Document string
	Phone    string
	Amount   decimal.Decimal
	Token    string
}

// Payment session repository interface
type SessionRepo interface {
	// Create a pending session expiring models.SessionLifetime from now.
	// Any prior pending session for the same (document, phone) pair is
	// superseded: at most one live session per client
	Create(ctx context.Context, arg CreateSessionParams) (models.PaymentSession, error)

	// Get session by id
	// If session not found must return apperrors.ErrSessionNotFound
	Get(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error)

	// Claim consumes the pending session. Exactly one concurrent caller
	// may win; every other caller must get apperrors.ErrSessionNotFound.
	// A claimed session can never be claimed again
	Claim(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error)

	// Remove session unconditionally. Removing a missing session is not
	// an error
	Remove(ctx context.Context, sessionID uuid.UUID) error
}

// Storage combines the postgres backed repositories and lets callers run
// several repository calls inside one database transaction.
type Storage interface {
	Client() ClientRepo
	Ledger() LedgerRepo

	// Run fn within database transaction. The storage passed to fn shares
	// that transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
