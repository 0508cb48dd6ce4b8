package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
)

// SessionRepo keeps payment sessions in postgres so they survive restarts
// and are shared across instances. Expired rows are left in place until a
// supersede or claim touches them; expiry itself is always re-checked by
// the caller against ExpiresAt.
type SessionRepo struct {
	DB DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{DB: db}
}

// Supersede any prior pending session for the pair, then insert the new
// one. Single statement so both steps share one snapshot.
const createSession = `-- name: CreateSession
WITH superseded AS (
	DELETE FROM payment_sessions
	WHERE document = $4 AND phone = $5 AND status = 'pending'
)
INSERT INTO payment_sessions (id, created_at, expires_at, document, phone, amount, token, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
RETURNING id, created_at, expires_at, document, phone, amount, token, status
`

func (r *SessionRepo) Create(ctx context.Context, arg repository.CreateSessionParams) (models.PaymentSession, error) {
	now := time.Now().UTC()

	rows, _ := r.DB.Query(ctx, createSession,
		uuid.New(), now, now.Add(models.SessionLifetime),
		arg.Document, arg.Phone, arg.Amount, arg.Token,
	)
	session, err := pgx.CollectOneRow(rows, rowToSession)
	if err != nil {
		return session, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

const getSession = `-- name: GetSession
SELECT id, created_at, expires_at, document, phone, amount, token, status FROM payment_sessions
WHERE id = $1
`

func (r *SessionRepo) Get(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error) {
	rows, _ := r.DB.Query(ctx, getSession, sessionID)
	return collectSession(rows)
}

// The WHERE status guard makes the claim a single-winner operation: the
// row is gone for every concurrent caller once one delete returns it.
const claimSession = `-- name: ClaimSession
DELETE FROM payment_sessions
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, expires_at, document, phone, amount, token, status
`

func (r *SessionRepo) Claim(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error) {
	rows, _ := r.DB.Query(ctx, claimSession, sessionID)
	return collectSession(rows)
}

const removeSession = `-- name: RemoveSession
DELETE FROM payment_sessions
WHERE id = $1
`

func (r *SessionRepo) Remove(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, removeSession, sessionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func collectSession(rows pgx.Rows) (models.PaymentSession, error) {
	session, err := pgx.CollectOneRow(rows, rowToSession)

	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, pgx.ErrNoRows):
		return session, apperrors.ErrSessionNotFound
	default:
		return session, fmt.Errorf("db error: %w", err)
	}
}

func rowToSession(row pgx.CollectableRow) (models.PaymentSession, error) {
	var s models.PaymentSession
	err := row.Scan(&s.ID, &s.CreatedAt, &s.ExpiresAt, &s.Document, &s.Phone, &s.Amount, &s.Token, &s.Status)
	return s, err
}
