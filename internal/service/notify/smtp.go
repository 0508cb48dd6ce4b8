package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPDispatcher sends the token by email over plain SMTP with auth.
type SMTPDispatcher struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPDispatcher(config SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{
		config: config,
		send:   smtp.SendMail,
	}
}

func (d *SMTPDispatcher) Dispatch(ctx context.Context, delivery Delivery) error {
	// net/smtp has no context support, check cancellation up front at least
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", d.config.Username, d.config.Password, d.config.Host)
	addr := d.config.Host + ":" + d.config.Port

	err := d.send(addr, auth, d.config.From, []string{delivery.Email}, buildMessage(d.config.From, delivery))
	if err != nil {
		return fmt.Errorf("send token email: %w", err)
	}

	return nil
}

func buildMessage(from string, delivery Delivery) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", delivery.Email)
	b.WriteString("Subject: Payment Confirmation Token\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "<p>Hello %s,</p>", delivery.Names)
	b.WriteString("<p>You have initiated a payment from your wallet. To confirm this transaction, please use the token below:</p>")
	fmt.Fprintf(&b, "<h3>%s</h3>", delivery.Token)
	fmt.Fprintf(&b, "<p>Session ID: %s</p>", delivery.SessionID)
	fmt.Fprintf(&b, "<p>This token expires at %s. If you did not request this payment, please ignore this email.</p>",
		delivery.ExpiresAt.Format(time.RFC3339))
	b.WriteString("<p>Virtual Wallet Team</p>")

	return []byte(b.String())
}
