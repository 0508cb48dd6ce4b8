package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/logger"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
	"github.com/andresmz/walletcore/internal/repository/postgres"
	"github.com/andresmz/walletcore/internal/service/notify"
	"github.com/andresmz/walletcore/internal/testutil"
)

type tokenSourceFunc func(length int) (string, error)

func (f tokenSourceFunc) Generate(length int) (string, error) { return f(length) }

// captureDispatcher records deliveries and optionally fails them all.
type captureDispatcher struct {
	deliveries []notify.Delivery
	err        error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, delivery notify.Delivery) error {
	if d.err != nil {
		return d.err
	}
	d.deliveries = append(d.deliveries, delivery)
	return nil
}

func TestService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	jane := RegisterParams{
		Document: "1234567890",
		Names:    "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "3001234567",
	}

	// Build a Service on a rolled-back transaction, with a fixed token
	// source and a capturing dispatcher
	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, dispatched *captureDispatcher)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			dispatcher := &captureDispatcher{}
			s := NewService(
				storage,
				postgres.NewSessionRepo(tx),
				tokenSourceFunc(func(int) (string, error) { return "123456", nil }),
				dispatcher,
				logger.NewNoOp(),
			)
			fn(s, storage, dispatcher)
		})
	}

	t.Run("Register", func(t *testing.T) {
		t.Run("register ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				client, err := s.Register(t.Context(), jane)

				require.NoError(t, err, "registering new client should be ok")
				require.NotEmpty(t, client.ID)
				require.Equal(t, jane.Document, client.Document)
				require.True(t, client.Balance.IsZero(), "new client balance should be zero")
			})
		})

		t.Run("duplicate document fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *captureDispatcher) {
				first, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(100))
				require.NoError(t, err)

				duplicate := jane
				duplicate.Email = "other@example.com"
				_, err = s.Register(t.Context(), duplicate)

				require.Error(t, err, "second client with same document should fail")
				require.ErrorIs(t, err, apperrors.ErrClientExists)

				// Existing client untouched
				client, err := storage.Client().GetClientByDocument(t.Context(), jane.Document)
				require.NoError(t, err)
				require.Equal(t, first.ID, client.ID)
				require.True(t, client.Balance.Equal(decimal.NewFromInt(100)), "balance should be unaffected by failed registration")
			})
		})
	})

	t.Run("Recharge", func(t *testing.T) {
		t.Run("recharge ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *captureDispatcher) {
				client, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				result, err := s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(100))

				require.NoError(t, err, "valid recharge should be ok")
				require.True(t, result.Balance.Equal(decimal.NewFromInt(100)), "new balance should be old balance plus amount")
				require.NotEmpty(t, result.TransactionID)

				transactions, err := storage.Ledger().ListTransactions(t.Context(), client.ID, 10)
				require.NoError(t, err)
				require.Len(t, transactions, 1, "exactly one deposit should be appended")
				require.Equal(t, models.TransactionKindDeposit, transactions[0].Kind)
				require.True(t, transactions[0].Amount.Equal(decimal.NewFromInt(100)), "transaction amount should match the recharge")
			})
		})

		t.Run("negative amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *captureDispatcher) {
				client, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(-5))

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrAmountInvalid)

				// Balance unchanged, no transaction recorded
				stored, err := storage.Client().GetClientByDocument(t.Context(), jane.Document)
				require.NoError(t, err)
				require.True(t, stored.Balance.IsZero())

				transactions, err := storage.Ledger().ListTransactions(t.Context(), client.ID, 10)
				require.NoError(t, err)
				require.Empty(t, transactions)
			})
		})

		t.Run("zero amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.Zero)

				require.ErrorIs(t, err, apperrors.ErrAmountInvalid)
			})
		})

		t.Run("wrong credentials fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				_, err = s.Recharge(t.Context(), jane.Document, "3110000000", decimal.NewFromInt(100))

				require.ErrorIs(t, err, apperrors.ErrClientNotFound)
			})
		})
	})

	t.Run("InitiatePayment", func(t *testing.T) {
		t.Run("initiate ok dispatches token", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, dispatched *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)
				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(100))
				require.NoError(t, err)

				result, err := s.InitiatePayment(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(50))

				require.NoError(t, err, "initiating payment within balance should be ok")
				require.NotEmpty(t, result.SessionID)
				require.WithinDuration(t, time.Now().Add(models.SessionLifetime), result.ExpiresAt, 5*time.Second)

				require.Len(t, dispatched.deliveries, 1, "token should be dispatched once")
				require.Equal(t, jane.Email, dispatched.deliveries[0].Email)
				require.Equal(t, "123456", dispatched.deliveries[0].Token)
				require.Equal(t, result.SessionID, dispatched.deliveries[0].SessionID)
			})
		})

		t.Run("insufficient funds creates no session", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, dispatched *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)
				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(40))
				require.NoError(t, err)

				_, err = s.InitiatePayment(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(50))

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
				require.Empty(t, dispatched.deliveries, "no token should be dispatched")
			})
		})

		t.Run("non positive amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.InitiatePayment(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(-1))

				require.ErrorIs(t, err, apperrors.ErrAmountInvalid)
			})
		})

		t.Run("unknown client fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.InitiatePayment(t.Context(), "0000000000", "3000000000", decimal.NewFromInt(10))

				require.ErrorIs(t, err, apperrors.ErrClientNotFound)
			})
		})

		t.Run("delivery failure is non fatal", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, dispatched *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)
				_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(100))
				require.NoError(t, err)

				dispatched.err = errors.New("smtp down")

				result, err := s.InitiatePayment(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(50))

				require.NoError(t, err, "bounced email must not fail the initiate call")

				// The session stands and can still be confirmed
				confirm, err := s.ConfirmPayment(t.Context(), result.SessionID.String(), "123456")
				require.NoError(t, err)
				require.True(t, confirm.Balance.Equal(decimal.NewFromInt(50)))
			})
		})
	})

	t.Run("ConfirmPayment", func(t *testing.T) {
		// Register jane with balance 100 and open a session for 50
		initiate := func(t *testing.T, s *Service) string {
			t.Helper()

			_, err := s.Register(t.Context(), jane)
			require.NoError(t, err)
			_, err = s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(100))
			require.NoError(t, err)

			result, err := s.InitiatePayment(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(50))
			require.NoError(t, err)

			return result.SessionID.String()
		}

		t.Run("confirm ok then session gone", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *captureDispatcher) {
				sessionID := initiate(t, s)

				result, err := s.ConfirmPayment(t.Context(), sessionID, "123456")

				require.NoError(t, err, "confirming with the right token should be ok")
				require.True(t, result.Balance.Equal(decimal.NewFromInt(50)), "balance should drop by the session amount")
				require.NotEmpty(t, result.TransactionID)

				client, err := storage.Client().GetClientByDocument(t.Context(), jane.Document)
				require.NoError(t, err)

				transactions, err := storage.Ledger().ListTransactions(t.Context(), client.ID, 10)
				require.NoError(t, err)
				require.Len(t, transactions, 2, "deposit plus purchase")
				require.Equal(t, models.TransactionKindPurchase, transactions[0].Kind)
				require.True(t, transactions[0].Amount.Equal(decimal.NewFromInt(50)), "purchase amount should match session")

				// Single use: the very same valid call must fail now
				_, err = s.ConfirmPayment(t.Context(), sessionID, "123456")
				require.ErrorIs(t, err, apperrors.ErrSessionNotFound, "second confirm must not find the session")
			})
		})

		t.Run("wrong token keeps session confirmable", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				sessionID := initiate(t, s)

				_, err := s.ConfirmPayment(t.Context(), sessionID, "654321")

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

				// Retry with the correct token still works
				result, err := s.ConfirmPayment(t.Context(), sessionID, "123456")
				require.NoError(t, err, "session should stay pending after a wrong token")
				require.True(t, result.Balance.Equal(decimal.NewFromInt(50)))
			})
		})

		t.Run("expired session fail regardless of token", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				sessionID := initiate(t, s)

				s.now = func() time.Time { return time.Now().Add(models.SessionLifetime + time.Minute) }

				_, err := s.ConfirmPayment(t.Context(), sessionID, "123456")
				require.ErrorIs(t, err, apperrors.ErrSessionExpired, "correct token must not save an expired session")

				// Expiry removed the session for good
				s.now = time.Now
				_, err = s.ConfirmPayment(t.Context(), sessionID, "123456")
				require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			})
		})

		t.Run("balance spent elsewhere fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *captureDispatcher) {
				sessionID := initiate(t, s)

				// Drain funds behind the session's back
				client, err := storage.Client().GetClientByDocument(t.Context(), jane.Document)
				require.NoError(t, err)
				_, _, err = storage.Ledger().Debit(t.Context(), client.ID, decimal.NewFromInt(80), "spent elsewhere")
				require.NoError(t, err)

				_, err = s.ConfirmPayment(t.Context(), sessionID, "123456")

				require.Error(t, err, "confirm must fail cleanly instead of overdrawing")
				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

				// No overdraw happened
				stored, err := storage.Client().GetClientByDocument(t.Context(), jane.Document)
				require.NoError(t, err)
				require.True(t, stored.Balance.Equal(decimal.NewFromInt(20)), "balance should be untouched by the failed confirm")

				// The attempt consumed the session, a new one is needed
				_, err = s.ConfirmPayment(t.Context(), sessionID, "123456")
				require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			})
		})

		t.Run("unknown session fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.ConfirmPayment(t.Context(), "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed", "123456")

				require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			})
		})

		t.Run("malformed session id fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.ConfirmPayment(t.Context(), "not-a-session-id", "123456")

				require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			})
		})
	})

	t.Run("Balance", func(t *testing.T) {
		t.Run("balance with recent transactions", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				for _, amount := range []int64{10, 20, 30, 40, 50, 60} {
					_, err := s.Recharge(t.Context(), jane.Document, jane.Phone, decimal.NewFromInt(amount))
					require.NoError(t, err)
				}

				result, err := s.Balance(t.Context(), jane.Document, jane.Phone)

				require.NoError(t, err)
				require.Equal(t, jane.Document, result.Client.Document)
				require.Equal(t, jane.Names, result.Client.Names)
				require.True(t, result.Client.Balance.Equal(decimal.NewFromInt(210)))

				require.Len(t, result.RecentTransactions, 5, "only the five most recent transactions")
				require.True(t, result.RecentTransactions[0].Amount.Equal(decimal.NewFromInt(60)), "newest first")
			})
		})

		t.Run("wrong credentials fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *captureDispatcher) {
				_, err := s.Register(t.Context(), jane)
				require.NoError(t, err)

				_, err = s.Balance(t.Context(), jane.Document, "3110000000")

				require.ErrorIs(t, err, apperrors.ErrClientNotFound)
			})
		})
	})
}
