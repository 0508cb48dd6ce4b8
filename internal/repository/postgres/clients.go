package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
)

type ClientRepo struct {
	DB DBTX
}

const createClient = `-- name: CreateClient
INSERT INTO clients (document, names, email, phone)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, document, names, email, phone, balance
`

func (r *ClientRepo) CreateClient(ctx context.Context, arg repository.CreateClientParams) (models.Client, error) {
	rows, _ := r.DB.Query(ctx, createClient, arg.Document, arg.Names, arg.Email, arg.Phone)
	client, err := pgx.CollectOneRow(rows, rowToClient)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return client, apperrors.ErrClientExists
		}

		return client, fmt.Errorf("db error: %w", err)
	}

	return client, nil
}

const getClientByDocument = `-- name: GetClientByDocument
SELECT id, created_at, document, names, email, phone, balance FROM clients
WHERE document = $1
`

func (r *ClientRepo) GetClientByDocument(ctx context.Context, document string) (models.Client, error) {
	rows, _ := r.DB.Query(ctx, getClientByDocument, document)
	return collectClient(rows)
}

const getClientByCredentials = `-- name: GetClientByCredentials
SELECT id, created_at, document, names, email, phone, balance FROM clients
WHERE document = $1 AND phone = $2
`

func (r *ClientRepo) GetClientByCredentials(ctx context.Context, document string, phone string) (models.Client, error) {
	rows, _ := r.DB.Query(ctx, getClientByCredentials, document, phone)
	return collectClient(rows)
}

func collectClient(rows pgx.Rows) (models.Client, error) {
	client, err := pgx.CollectOneRow(rows, rowToClient)

	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, pgx.ErrNoRows):
		return client, apperrors.ErrClientNotFound
	default:
		return client, fmt.Errorf("db error: %w", err)
	}
}

func rowToClient(row pgx.CollectableRow) (models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.CreatedAt, &c.Document, &c.Names, &c.Email, &c.Phone, &c.Balance)
	return c, err
}
