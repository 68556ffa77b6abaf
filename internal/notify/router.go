package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier matches the workflow's notifier contract.
type Notifier interface {
	Notify(ctx context.Context, to, subject, bodyHTML string) error
}

// Router sends every message by mail and additionally mirrors messages
// addressed to the administrator into the Telegram channel when one is
// configured. The Telegram copy is best-effort; only the mail result
// decides the returned error.
type Router struct {
	mail       Notifier
	telegram   Notifier
	adminEmail string
	logger     *zerolog.Logger
}

// NewRouter wires the delivery channels. telegram may be nil.
func NewRouter(mail Notifier, telegram Notifier, adminEmail string, logger *zerolog.Logger) *Router {
	return &Router{mail: mail, telegram: telegram, adminEmail: adminEmail, logger: logger}
}

func (r *Router) Notify(ctx context.Context, to, subject, bodyHTML string) error {
	if r.telegram != nil && to == r.adminEmail {
		if err := r.telegram.Notify(ctx, to, subject, bodyHTML); err != nil {
			r.logger.Warn().Err(err).Msg("telegram admin alert failed")
		}
	}
	return r.mail.Notify(ctx, to, subject, bodyHTML)
}
