package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresmz/walletcore/internal/apperrors"
	"github.com/andresmz/walletcore/internal/handlers/render"
	"github.com/andresmz/walletcore/internal/logger"
	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/service/wallet"
)

type clientData struct {
	ClientID string `json:"clientId"`
	Document string `json:"document"`
	Names    string `json:"names"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func toClientData(c models.Client) clientData {
	return clientData{
		ClientID: c.ID.String(),
		Document: c.Document,
		Names:    c.Names,
		Email:    c.Email,
		Phone:    c.Phone,
	}
}

func handleRegister(service walletService, l logger.Logger) http.Handler {
	type request struct {
		Document string `json:"document" validate:"required"`
		Names    string `json:"names" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone" validate:"required"`
	}

	type response struct {
		Client clientData `json:"client"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		client, err := service.Register(r.Context(), wallet.RegisterParams{
			Document: req.Document,
			Names:    req.Names,
			Email:    req.Email,
			Phone:    req.Phone,
		})

		switch {
		case err == nil:
			render.OK(w, response{Client: toClientData(client)})
		case errors.Is(err, apperrors.ErrClientExists):
			render.Error(w, err)
		default:
			l.Error("Failed to register client", "error", err)
			render.Error(w, err)
		}
	})
}

func handleRecharge(service walletService, l logger.Logger) http.Handler {
	type request struct {
		Document string          `json:"document" validate:"required"`
		Phone    string          `json:"phone" validate:"required"`
		Amount   decimal.Decimal `json:"amount"`
	}

	type response struct {
		NewBalance    float64 `json:"newBalance"`
		TransactionID string  `json:"transactionId"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.Recharge(r.Context(), req.Document, req.Phone, req.Amount)

		switch {
		case err == nil:
			balance, _ := result.Balance.Float64()
			render.OK(w, response{NewBalance: balance, TransactionID: result.TransactionID.String()})
		case errors.Is(err, apperrors.ErrAmountInvalid),
			errors.Is(err, apperrors.ErrClientNotFound):
			render.Error(w, err)
		default:
			l.Error("Failed to recharge wallet", "error", err)
			render.Error(w, err)
		}
	})
}

func handleInitiatePayment(service walletService, l logger.Logger) http.Handler {
	type request struct {
		Document string          `json:"document" validate:"required"`
		Phone    string          `json:"phone" validate:"required"`
		Amount   decimal.Decimal `json:"amount"`
	}

	type response struct {
		SessionID string `json:"sessionId"`
		ExpiresIn int    `json:"expiresIn"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.InitiatePayment(r.Context(), req.Document, req.Phone, req.Amount)

		switch {
		case err == nil:
			render.OK(w, response{
				SessionID: result.SessionID.String(),
				ExpiresIn: int(time.Until(result.ExpiresAt).Seconds()),
			})
		case errors.Is(err, apperrors.ErrAmountInvalid),
			errors.Is(err, apperrors.ErrClientNotFound),
			errors.Is(err, apperrors.ErrInsufficientFunds):
			render.Error(w, err)
		default:
			l.Error("Failed to initiate payment", "error", err)
			render.Error(w, err)
		}
	})
}

func handleConfirmPayment(service walletService, l logger.Logger) http.Handler {
	type request struct {
		SessionID string `json:"sessionId" validate:"required"`
		Token     string `json:"token" validate:"required"`
	}

	type response struct {
		TransactionID string  `json:"transactionId"`
		NewBalance    float64 `json:"newBalance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.ConfirmPayment(r.Context(), req.SessionID, req.Token)

		switch {
		case err == nil:
			balance, _ := result.Balance.Float64()
			render.OK(w, response{TransactionID: result.TransactionID.String(), NewBalance: balance})
		case errors.Is(err, apperrors.ErrSessionNotFound),
			errors.Is(err, apperrors.ErrSessionExpired),
			errors.Is(err, apperrors.ErrTokenInvalid),
			errors.Is(err, apperrors.ErrClientNotFound),
			errors.Is(err, apperrors.ErrInsufficientFunds):
			render.Error(w, err)
		default:
			l.Error("Failed to confirm payment", "error", err)
			render.Error(w, err)
		}
	})
}

func handleBalance(service walletService, l logger.Logger) http.Handler {
	type request struct {
		Document string `json:"document" validate:"required"`
		Phone    string `json:"phone" validate:"required"`
	}

	type transactionData struct {
		ID        string    `json:"id"`
		Kind      string    `json:"type"`
		Amount    float64   `json:"amount"`
		Reference string    `json:"reference"`
		Date      time.Time `json:"date"`
	}

	type response struct {
		Balance            float64           `json:"balance"`
		Client             clientData        `json:"client"`
		RecentTransactions []transactionData `json:"recentTransactions"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.Balance(r.Context(), req.Document, req.Phone)

		switch {
		case err == nil:
			balance, _ := result.Client.Balance.Float64()

			transactions := make([]transactionData, 0, len(result.RecentTransactions))
			for _, t := range result.RecentTransactions {
				amount, _ := t.Amount.Float64()
				transactions = append(transactions, transactionData{
					ID:        t.ID.String(),
					Kind:      t.Kind,
					Amount:    amount,
					Reference: t.Reference,
					Date:      t.CreatedAt,
				})
			}

			render.OK(w, response{
				Balance:            balance,
				Client:             toClientData(result.Client),
				RecentTransactions: transactions,
			})
		case errors.Is(err, apperrors.ErrClientNotFound):
			render.Error(w, err)
		default:
			l.Error("Failed to check balance", "error", err)
			render.Error(w, err)
		}
	})
}
