package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/models"
)

type LedgerRepo struct {
	DB DBTX
}

// Both statements run against the same DBTX: wrap calls in Storage.InTx so
// the balance write and the ledger row land in one database transaction.

const creditClient = `-- name: CreditClient
UPDATE clients
SET balance = balance + $2
WHERE id = $1
RETURNING id, created_at, document, names, email, phone, balance
`

func (r *LedgerRepo) Credit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal, reference string) (models.Client, models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, creditClient, clientID, amount)
	client, err := pgx.CollectOneRow(rows, rowToClient)

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		return client, models.Transaction{}, apperrors.ErrClientNotFound
	default:
		return client, models.Transaction{}, fmt.Errorf("db error: %w", err)
	}

	tr, err := r.appendTransaction(ctx, clientID, models.TransactionKindDeposit, amount, reference)
	return client, tr, err
}

// Guarded update: the WHERE clause makes the read-modify-write atomic, so
// two debits racing on the same client can never overdraw the balance.
const debitClient = `-- name: DebitClient
UPDATE clients
SET balance = balance - $2
WHERE id = $1 AND balance >= $2
RETURNING id, created_at, document, names, email, phone, balance
`

const clientExists = `-- name: ClientExists
SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)
`

func (r *LedgerRepo) Debit(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal, reference string) (models.Client, models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, debitClient, clientID, amount)
	client, err := pgx.CollectOneRow(rows, rowToClient)

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		// Zero rows means either an unknown client or a guarded refusal
		var exists bool
		if err := r.DB.QueryRow(ctx, clientExists, clientID).Scan(&exists); err != nil {
			return client, models.Transaction{}, fmt.Errorf("db error: %w", err)
		}
		if !exists {
			return client, models.Transaction{}, apperrors.ErrClientNotFound
		}
		return client, models.Transaction{}, apperrors.ErrInsufficientFunds
	default:
		return client, models.Transaction{}, fmt.Errorf("db error: %w", err)
	}

	tr, err := r.appendTransaction(ctx, clientID, models.TransactionKindPurchase, amount, reference)
	return client, tr, err
}

const appendTransaction = `-- name: AppendTransaction
INSERT INTO transactions (client_id, kind, amount, reference, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, client_id, kind, amount, reference, status
`

func (r *LedgerRepo) appendTransaction(ctx context.Context, clientID uuid.UUID, kind string, amount decimal.Decimal, reference string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, appendTransaction, clientID, kind, amount, reference, models.TransactionStatusCompleted)
	tr, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return tr, fmt.Errorf("db error: %w", err)
	}

	return tr, nil
}

const listTransactions = `-- name: ListTransactions
SELECT id, created_at, client_id, kind, amount, reference, status FROM transactions
WHERE client_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

func (r *LedgerRepo) ListTransactions(ctx context.Context, clientID uuid.UUID, limit int) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, clientID, limit)
	trs, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return trs, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CreatedAt, &t.ClientID, &t.Kind, &t.Amount, &t.Reference, &t.Status)
	return t, err
}
