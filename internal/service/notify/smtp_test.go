package notify

import (
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSMTPDispatcher(t *testing.T) {
	t.Parallel()

	delivery := Delivery{
		Email:     "client@example.com",
		Names:     "Jane Doe",
		Token:     "123456",
		SessionID: uuid.New(),
		ExpiresAt: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}

	t.Run("sends to recipient with token in body", func(t *testing.T) {
		var gotAddr, gotFrom string
		var gotTo []string
		var gotMsg []byte

		d := NewSMTPDispatcher(SMTPConfig{Host: "mail.local", Port: "587", From: "wallet@example.com"})
		d.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		}

		err := d.Dispatch(t.Context(), delivery)

		require.NoError(t, err)
		require.Equal(t, "mail.local:587", gotAddr)
		require.Equal(t, "wallet@example.com", gotFrom)
		require.Equal(t, []string{"client@example.com"}, gotTo)
		require.Contains(t, string(gotMsg), "123456")
		require.Contains(t, string(gotMsg), delivery.SessionID.String())
		require.Contains(t, string(gotMsg), "Jane Doe")
	})

	t.Run("send failure propagated", func(t *testing.T) {
		d := NewSMTPDispatcher(SMTPConfig{Host: "mail.local", Port: "587"})
		d.send = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}

		err := d.Dispatch(t.Context(), delivery)

		require.Error(t, err)
	})
}
