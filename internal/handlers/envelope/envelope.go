// Package envelope is the uniform response contract: every operation
// answers {success, cod_error, message_error, data} no matter the
// transport and no matter the outcome.
package envelope

import (
	"errors"
	"net/http"

	"github.com/andresmz/walletcore/internal/apperrors"
)

// Stable error code vocabulary. Callers branch on these, never on the
// human message.
const (
	CodeOK             = "00"
	CodeClientExists   = "001"
	CodeAmountInvalid  = "002"
	CodeClientNotFound = "003"
	CodeInsufficient   = "004"
	CodeSessionMissing = "005"
	CodeSessionExpired = "006"
	CodeTokenInvalid   = "007"
	CodeBadRequest     = "400"
	CodeInternal       = "500"
)

type Envelope struct {
	Success      bool   `json:"success"`
	CodError     string `json:"cod_error"`
	MessageError string `json:"message_error"`
	Data         any    `json:"data"`
}

func OK(data any) Envelope {
	if data == nil {
		data = map[string]any{}
	}

	return Envelope{
		Success:  true,
		CodError: CodeOK,
		Data:     data,
	}
}

func Err(code string, message string) Envelope {
	return Envelope{
		Success:      false,
		CodError:     code,
		MessageError: message,
		Data:         map[string]any{},
	}
}

// FromError maps a domain error to its envelope and the HTTP status the
// transport should answer with. Business outcomes are 4xx equivalents;
// only unknown errors (store unreachable, bugs) surface as 500.
func FromError(err error) (Envelope, int) {
	switch {
	case errors.Is(err, apperrors.ErrClientExists):
		return Err(CodeClientExists, "Client already exists"), http.StatusConflict
	case errors.Is(err, apperrors.ErrAmountInvalid):
		return Err(CodeAmountInvalid, "Amount must be greater than 0"), http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrClientNotFound):
		return Err(CodeClientNotFound, "Client not found"), http.StatusNotFound
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return Err(CodeInsufficient, "Insufficient balance"), http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return Err(CodeSessionMissing, "Payment session not found"), http.StatusNotFound
	case errors.Is(err, apperrors.ErrSessionExpired):
		return Err(CodeSessionExpired, "Payment session expired"), http.StatusGone
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return Err(CodeTokenInvalid, "Invalid token"), http.StatusUnauthorized
	default:
		return Err(CodeInternal, "Error processing request"), http.StatusInternalServerError
	}
}
