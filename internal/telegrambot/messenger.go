package telegrambot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/affiliate"
)

// maxMessageRunes is Telegram's text limit.
const maxMessageRunes = 4096

// Messenger sends and deletes chat messages. Texts are sent as plain text so that links and
// discount codes are shown exactly as built.
type Messenger struct {
	api    API
	logger *zerolog.Logger
}

func NewMessenger(api API, logger *zerolog.Logger) *Messenger {
	return &Messenger{api: api, logger: logger}
}

// SendReply sends text to the chat of ref. Only the first part of a long text carries the
// reply target.
func (m *Messenger) SendReply(ctx context.Context, ref affiliate.MessageRef, text string, replyToID int) error {
	for i, part := range SplitText(text, maxMessageRunes) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}

		msg := tgbotapi.NewMessage(ref.ChatID, part)
		if i == 0 && replyToID != 0 {
			msg.ReplyToMessageID = replyToID
			msg.AllowSendingWithoutReply = true
		}

		if _, err := m.api.Send(msg); err != nil {
			return fmt.Errorf("send message part %d to chat %d: %w", i+1, ref.ChatID, err)
		}
	}

	return nil
}

// DeleteMessage removes the message identified by ref.
func (m *Messenger) DeleteMessage(ctx context.Context, ref affiliate.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}

	m.logger.Debug().Int("message_id", ref.MessageID).Int64("chat_id", ref.ChatID).Msg("Original message deleted")

	return nil
}
