package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
)

// Keys live slightly longer than the session itself. The TTL is a cleanup
// optimization only: the engine re-checks ExpiresAt on every confirm, so
// late eviction can not resurrect an expired session.
const keySlack = time.Minute

// SessionRepo keeps payment sessions in redis, for deployments that scale
// the wallet horizontally and want expired sessions evicted for free.
type SessionRepo struct {
	client *redis.Client
}

func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func clientKey(document string, phone string) string {
	return fmt.Sprintf("session:client:%s:%s", document, phone)
}

func (r *SessionRepo) Create(ctx context.Context, arg repository.CreateSessionParams) (models.PaymentSession, error) {
	now := time.Now().UTC()

	session := models.PaymentSession{
		ID:        uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionLifetime),
		Document:  arg.Document,
		Phone:     arg.Phone,
		Amount:    arg.Amount,
		Token:     arg.Token,
		Status:    models.SessionStatusPending,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return session, fmt.Errorf("marshal session: %w", err)
	}

	// Supersede the prior pending session for this client, if any
	prior, err := r.client.GetDel(ctx, clientKey(arg.Document, arg.Phone)).Result()
	switch {
	case err == nil:
		_ = r.client.Del(ctx, "session:"+prior).Err()
	case errors.Is(err, redis.Nil):
	default:
		return session, fmt.Errorf("redis error: %w", err)
	}

	ttl := models.SessionLifetime + keySlack
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.Set(ctx, clientKey(arg.Document, arg.Phone), session.ID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return session, fmt.Errorf("redis error: %w", err)
	}

	return session, nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	return unmarshalSession(data, err)
}

// GetDel hands the value to exactly one caller, which makes it the
// single-winner consume primitive: the loser of a concurrent claim
// observes redis.Nil and reports the session as gone.
func (r *SessionRepo) Claim(ctx context.Context, sessionID uuid.UUID) (models.PaymentSession, error) {
	data, err := r.client.GetDel(ctx, sessionKey(sessionID)).Result()

	session, err := unmarshalSession(data, err)
	if err != nil {
		return session, err
	}

	_ = r.client.Del(ctx, clientKey(session.Document, session.Phone)).Err()
	return session, nil
}

func (r *SessionRepo) Remove(ctx context.Context, sessionID uuid.UUID) error {
	session, err := r.Get(ctx, sessionID)
	switch {
	case err == nil:
		_ = r.client.Del(ctx, clientKey(session.Document, session.Phone)).Err()
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return nil
	default:
		return err
	}

	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

func unmarshalSession(data string, err error) (models.PaymentSession, error) {
	var session models.PaymentSession

	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		return session, apperrors.ErrSessionNotFound
	default:
		return session, fmt.Errorf("redis error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return session, fmt.Errorf("unmarshal session: %w", err)
	}

	return session, nil
}
