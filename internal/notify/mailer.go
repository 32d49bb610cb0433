// Package notify is the outbound email side channel. Everything here is
// best-effort: callers log failures and move on, a notification must never
// fail the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends plain-text mail through a relay. When no host is
// configured it silently skips, so dev environments run without mail setup.
type SMTPMailer struct {
	Addr string // host:port, empty disables sending
	From string
	Auth smtp.Auth
	Log  *slog.Logger
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.Addr == "" {
		m.Log.Debug("smtp not configured, skipping email", "to", to)
		return nil
	}
	msg := strings.NewReplacer("\r", "", "\n", "\r\n").Replace(
		fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", m.From, to, subject, body))
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg))
}

// LogMailer records sends instead of delivering them. Used in dev and tests.
type LogMailer struct {
	Log *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.Log.Info("email", "to", to, "subject", subject)
	return nil
}

// BestEffort sends and swallows the error, logging it. The one call path
// every fire-and-forget notification goes through.
func BestEffort(ctx context.Context, m Mailer, log *slog.Logger, to, subject, body string) {
	if to == "" {
		return
	}
	if err := m.Send(ctx, to, subject, body); err != nil {
		log.Warn("email send failed", "to", to, "subject", subject, "error", err)
	}
}
