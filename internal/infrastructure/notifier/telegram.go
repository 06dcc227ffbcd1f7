package notifier

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

// Telegram delivers deal alerts to a single chat via a bot.
type Telegram struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Telegram{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Send(ctx context.Context, message string) error {
	msg := tu.Message(tu.ID(t.chatID), "🔥 "+message)

	if _, err := t.bot.SendMessage(ctx, msg); err != nil {
		return domain.WrapError(err, errcodes.DeliveryFailure, "telegram send")
	}

	logger(ctx).Info("telegram alert delivered", "chat_id", t.chatID)

	return nil
}
