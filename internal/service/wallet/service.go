// Package wallet is the payment engine: the state machine moving funds
// between a pending payment session and a committed ledger entry.
//
// A payment attempt goes NONE -> pending (session created) -> one of
// completed, expired or failed. Terminal states are not reusable; a new
// attempt needs a new session.
package wallet

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/logger"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
	"github.com/andresmz/walletcore/internal/service/notify"
)

// Confirmation codes are short on purpose: clients type them back
const tokenLength = 6

const recentTransactionsLimit = 5

// TokenSource issues one-time confirmation codes.
type TokenSource interface {
	Generate(length int) (string, error)
}

type Service struct {
	storage    repository.Storage
	sessions   repository.SessionRepo
	tokens     TokenSource
	dispatcher notify.Dispatcher
	auth       ClientAuthenticator
	logger     logger.Logger

	// injectable for deterministic expiry tests
	now func() time.Time
}

func NewService(
	storage repository.Storage,
	sessions repository.SessionRepo,
	tokens TokenSource,
	dispatcher notify.Dispatcher,
	l logger.Logger,
) *Service {
	return &Service{
		storage:    storage,
		sessions:   sessions,
		tokens:     tokens,
		dispatcher: dispatcher,
		auth:       &repoAuthenticator{clients: storage.Client()},
		logger:     l,
		now:        time.Now,
	}
}

type RegisterParams struct {
	Document string
	Names    string
	Email    string
	Phone    string
}

// Register creates a client with zero balance.
// Returns apperrors.ErrClientExists when the document or email is taken.
func (s *Service) Register(ctx context.Context, arg RegisterParams) (models.Client, error) {
	client, err := s.storage.Client().CreateClient(ctx, repository.CreateClientParams(arg))
	if err != nil {
		return client, fmt.Errorf("can't register client. Err: %w", err)
	}

	return client, nil
}

type RechargeResult struct {
	Balance       decimal.Decimal
	TransactionID uuid.UUID
}

// Recharge credits the client balance and appends one deposit row.
func (s *Service) Recharge(ctx context.Context, document string, phone string, amount decimal.Decimal) (RechargeResult, error) {
	var result RechargeResult

	if !amount.IsPositive() {
		return result, apperrors.ErrAmountInvalid
	}

	client, err := s.auth.Authenticate(ctx, document, phone)
	if err != nil {
		return result, err
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		updated, tr, err := st.Ledger().Credit(ctx, client.ID, amount, fmt.Sprintf("Wallet recharge for %s", amount))
		if err != nil {
			return err
		}

		result = RechargeResult{Balance: updated.Balance, TransactionID: tr.ID}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("can't recharge wallet. Err: %w", err)
	}

	return result, nil
}

type InitiateResult struct {
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// InitiatePayment opens a payment session and dispatches its one-time
// token to the client. The balance is checked but NOT debited here; the
// authoritative check is the guarded debit at confirm time.
//
// At most one pending session exists per client: initiating again
// supersedes the previous session.
func (s *Service) InitiatePayment(ctx context.Context, document string, phone string, amount decimal.Decimal) (InitiateResult, error) {
	var result InitiateResult

	if !amount.IsPositive() {
		return result, apperrors.ErrAmountInvalid
	}

	client, err := s.auth.Authenticate(ctx, document, phone)
	if err != nil {
		return result, err
	}

	if client.Balance.LessThan(amount) {
		return result, apperrors.ErrInsufficientFunds
	}

	code, err := s.tokens.Generate(tokenLength)
	if err != nil {
		return result, fmt.Errorf("can't generate confirmation token. Err: %w", err)
	}

	session, err := s.sessions.Create(ctx, repository.CreateSessionParams{
		Document: document,
		Phone:    phone,
		Amount:   amount,
		Token:    code,
	})
	if err != nil {
		return result, fmt.Errorf("can't create payment session. Err: %w", err)
	}

	// Best-effort delivery: the session stands even if the email bounces.
	// The failure is visible in logs only, documented policy
	err = s.dispatcher.Dispatch(ctx, notify.Delivery{
		Email:     client.Email,
		Names:     client.Names,
		Token:     session.Token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		s.logger.Warn("token delivery failed",
			"session_id", session.ID,
			"email", client.Email,
			"error", err,
		)
	}

	return InitiateResult{SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

type ConfirmResult struct {
	Balance       decimal.Decimal
	TransactionID uuid.UUID
}

// ConfirmPayment settles the session: verifies deadline and token, claims
// the session (single winner even under concurrent confirms) and performs
// the guarded debit. The balance re-check exists because funds may have
// moved between initiate and confirm.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string, code string) (ConfirmResult, error) {
	var result ConfirmResult

	id, err := uuid.Parse(sessionID)
	if err != nil {
		return result, apperrors.ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return result, err
	}

	if session.Expired(s.now()) {
		if err := s.sessions.Remove(ctx, id); err != nil {
			s.logger.Warn("can't remove expired session", "session_id", id, "error", err)
		}
		return result, apperrors.ErrSessionExpired
	}

	if subtle.ConstantTimeCompare([]byte(session.Token), []byte(code)) != 1 {
		// Session stays pending, the client may retry until the deadline
		return result, apperrors.ErrTokenInvalid
	}

	// Single-use consume: from here on the session is gone no matter how
	// the debit goes. A concurrent confirm that lost the claim sees
	// ErrSessionNotFound
	session, err = s.sessions.Claim(ctx, id)
	if err != nil {
		return result, err
	}

	client, err := s.auth.Authenticate(ctx, session.Document, session.Phone)
	if err != nil {
		return result, err
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		updated, tr, err := st.Ledger().Debit(ctx, client.ID, session.Amount, fmt.Sprintf("Payment of %s", session.Amount))
		if err != nil {
			return err
		}

		result = ConfirmResult{Balance: updated.Balance, TransactionID: tr.ID}
		return nil
	})

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, apperrors.ErrInsufficientFunds), errors.Is(err, apperrors.ErrClientNotFound):
		return result, err
	default:
		return result, fmt.Errorf("can't confirm payment. Err: %w", err)
	}
}

type BalanceResult struct {
	Client             models.Client
	RecentTransactions []models.Transaction
}

// Balance returns the client identity, current balance and the most
// recent transactions, newest first.
func (s *Service) Balance(ctx context.Context, document string, phone string) (BalanceResult, error) {
	var result BalanceResult

	client, err := s.auth.Authenticate(ctx, document, phone)
	if err != nil {
		return result, err
	}

	transactions, err := s.storage.Ledger().ListTransactions(ctx, client.ID, recentTransactionsLimit)
	if err != nil {
		return result, fmt.Errorf("can't list transactions. Err: %w", err)
	}

	return BalanceResult{Client: client, RecentTransactions: transactions}, nil
}
