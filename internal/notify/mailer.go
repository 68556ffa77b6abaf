// Package notify implements the notification gateways: SMTP mail delivery
// and an optional Telegram channel for administrator alerts.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// sendTimeout caps a single SMTP exchange so a stuck server surfaces as an
// error instead of blocking the workflow.
const sendTimeout = 15 * time.Second

// SMTPMailer delivers HTML mail through a single SMTP account. Sends are
// rate limited so a burst of submissions does not trip the provider.
type SMTPMailer struct {
	host     string
	port     int
	sender   string
	password string
	limiter  *rate.Limiter
	logger   *zerolog.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer configures a mailer. ratePerSecond bounds outgoing messages.
func NewSMTPMailer(host string, port int, sender, password string, ratePerSecond float64, logger *zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:   logger,
		send:     smtp.SendMail,
	}
}

// Notify sends one HTML message. It waits for the rate limiter, so the
// caller's context bounds the total time spent.
func (m *SMTPMailer) Notify(ctx context.Context, to, subject, bodyHTML string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := buildMessage(m.sender, to, subject, bodyHTML)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.sender, m.password, m.host)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.sender, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		m.logger.Debug().Str("to", to).Str("subject", subject).Msg("mail sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", to, ctx.Err())
	}
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func buildMessage(from, to, subject, bodyHTML string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(bodyHTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}
