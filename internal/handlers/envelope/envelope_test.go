package envelope

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andresmz/walletcore/internal/apperrors"
)

func TestOK(t *testing.T) {
	t.Run("wraps data", func(t *testing.T) {
		env := OK(map[string]any{"balance": 100})

		require.True(t, env.Success)
		require.Equal(t, CodeOK, env.CodError)
		require.Empty(t, env.MessageError)
		require.Equal(t, map[string]any{"balance": 100}, env.Data)
	})

	t.Run("nil data becomes empty object", func(t *testing.T) {
		env := OK(nil)

		require.NotNil(t, env.Data, "success data should serialize as an object, not null")
	})
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       string
		httpStatus int
	}{
		{"client exists", apperrors.ErrClientExists, CodeClientExists, http.StatusConflict},
		{"amount invalid", apperrors.ErrAmountInvalid, CodeAmountInvalid, http.StatusUnprocessableEntity},
		{"client not found", apperrors.ErrClientNotFound, CodeClientNotFound, http.StatusNotFound},
		{"insufficient funds", apperrors.ErrInsufficientFunds, CodeInsufficient, http.StatusPaymentRequired},
		{"session not found", apperrors.ErrSessionNotFound, CodeSessionMissing, http.StatusNotFound},
		{"session expired", apperrors.ErrSessionExpired, CodeSessionExpired, http.StatusGone},
		{"token invalid", apperrors.ErrTokenInvalid, CodeTokenInvalid, http.StatusUnauthorized},
		{"unknown error", errors.New("pg connection refused"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, status := FromError(tt.err)

			require.False(t, env.Success)
			require.Equal(t, tt.code, env.CodError)
			require.NotEmpty(t, env.MessageError, "every failure needs a human message")
			require.Equal(t, tt.httpStatus, status)
			require.Equal(t, map[string]any{}, env.Data, "failure data should be empty")
		})
	}

	t.Run("wrapped errors map the same", func(t *testing.T) {
		wrapped := errors.Join(errors.New("can't recharge wallet"), apperrors.ErrClientNotFound)

		env, status := FromError(wrapped)

		require.Equal(t, CodeClientNotFound, env.CodError)
		require.Equal(t, http.StatusNotFound, status)
	})
}
