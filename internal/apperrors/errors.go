package apperrors

import (
	"errors"
)

var (
	ErrClientExists   = errors.New("client already exists")
	ErrClientNotFound = errors.New("client not found")

	ErrAmountInvalid     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrSessionNotFound = errors.New("payment session not found")
	ErrSessionExpired  = errors.New("payment session expired")
	ErrTokenInvalid    = errors.New("confirmation token is invalid")
)
