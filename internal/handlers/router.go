package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/andresmz/walletcore/internal/handlers/middleware"
	"github.com/andresmz/walletcore/internal/logger"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/service/wallet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(service walletService, logger logger.Logger) http.Handler {
	api := http.NewServeMux()

	api.Handle("POST /register", handleRegister(service, logger))
	api.Handle("POST /recharge", handleRecharge(service, logger))
	api.Handle("POST /pay", handleInitiatePayment(service, logger))
	api.Handle("POST /pay/confirm", handleConfirmPayment(service, logger))
	api.Handle("POST /balance", handleBalance(service, logger))

	root := http.NewServeMux()
	root.Handle("/api/wallet/", http.StripPrefix("/api/wallet", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type walletService interface {
	// Register client with zero balance
	// Has to return apperrors.ErrClientExists on duplicate document or email
	Register(ctx context.Context, arg wallet.RegisterParams) (models.Client, error)

	// Credit balance, append one deposit transaction
	Recharge(ctx context.Context, document string, phone string, amount decimal.Decimal) (wallet.RechargeResult, error)

	// Open a payment session and dispatch its one-time token
	InitiatePayment(ctx context.Context, document string, phone string, amount decimal.Decimal) (wallet.InitiateResult, error)

	// Settle the session: single use, deadline and token enforced
	ConfirmPayment(ctx context.Context, sessionID string, token string) (wallet.ConfirmResult, error)

	// Balance plus the most recent transactions, newest first
	Balance(ctx context.Context, document string, phone string) (wallet.BalanceResult, error)
}
