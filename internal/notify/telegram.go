package notify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the subset of the bot API the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts administrator alerts to a configured chat. It carries the
// same message content as the admin mail, as plain text.
type Telegram struct {
	bot    TelegramSender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegram connects the bot and targets the given chat.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// NewTelegramWithSender wires an existing sender, for tests.
func NewTelegramWithSender(sender TelegramSender, chatID int64, logger *zerolog.Logger) *Telegram {
	return &Telegram{bot: sender, chatID: chatID, logger: logger}
}

// Notify posts the subject and a plain-text rendering of the body to the
// admin chat. The to address is ignored; the chat is fixed by config.
func (t *Telegram) Notify(ctx context.Context, _, subject, bodyHTML string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := subject + "\n\n" + stripTags(bodyHTML)
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.Debug().Int64("chat_id", t.chatID).Str("subject", subject).Msg("telegram alert sent")
	return nil
}

var (
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
	breakRepl = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</li>", "\n", "</p>", "\n\n", "</h3>", "\n\n", "&ndash;", "-", "&amp;", "&")
)

// stripTags renders the small HTML fragments used in mails as plain text.
func stripTags(html string) string {
	text := breakRepl.Replace(html)
	text = tagRe.ReplaceAllString(text, "")
	text = blankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
