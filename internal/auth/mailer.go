package auth

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"campusrx/m/internal/config"
	"campusrx/m/internal/logger"
)

// Mailer delivers plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	Log *logger.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	ctx = m.Log.WithFields(ctx, map[string]any{"to": to, "subject": subject, "body": body})
	m.Log.Info(ctx, "mail not sent: smtp is not configured")
	return nil
}
