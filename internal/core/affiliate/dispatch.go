package affiliate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
)

// Messenger is the chat side of dispatching. A replyToID of 0 sends without a reply target.
type Messenger interface {
	SendReply(ctx context.Context, ref MessageRef, text string, replyToID int) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// Dispatcher hands a processed message back to the chat.
type Dispatcher struct {
	messenger Messenger
	logger    *zerolog.Logger
}

func NewDispatcher(messenger Messenger, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{messenger: messenger, logger: logger}
}

// ComposeReplyAttribution wraps text with the configured prefix naming the author and the
// modified-message suffix.
func ComposeReplyAttribution(msgs attribution.Messages, ref MessageRef, text string) string {
	name := ref.Username
	if name == "" {
		name = ref.FirstName
	}

	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(fmt.Sprintf("%s @%s:", msgs.ReplyPrefix, name)))
	sb.WriteString("\n\n")
	sb.WriteString(text)

	if msgs.ModifiedSuffix != "" {
		sb.WriteString("\n\n")
		sb.WriteString(msgs.ModifiedSuffix)
	}

	return sb.String()
}

// Dispatch sends the outcome of rc. A rewritten text either replaces the original message
// (deleted, then re-sent as a reply to whatever the original replied to) or is posted as a
// reply to it. A discount-only outcome is a plain reply with the codes.
func (d *Dispatcher) Dispatch(ctx context.Context, snap *attribution.Snapshot, rc *RewriteContext) error {
	if !rc.Handled() {
		return nil
	}

	log := d.logger.With().
		Str("rewrite_id", rc.ID).
		Int("message_id", rc.Message.MessageID).
		Int64("chat_id", rc.Message.ChatID).
		Logger()

	discountTarget := rc.Message.MessageID

	if rc.Modified() {
		text := ComposeReplyAttribution(snap.Messages(), rc.Message, rc.Text)

		if snap.Settings().DeleteOriginalMessage {
			if err := d.messenger.DeleteMessage(ctx, rc.Message); err != nil {
				return fmt.Errorf("delete original message: %w", err)
			}

			if err := d.messenger.SendReply(ctx, rc.Message, text, rc.Message.ReplyToMessageID); err != nil {
				return fmt.Errorf("send rewritten message: %w", err)
			}

			discountTarget = rc.Message.ReplyToMessageID

			observability.MessagesDispatched.WithLabelValues("replace").Inc()
			log.Info().Msg("Original message deleted and rewritten message sent")
		} else {
			if err := d.messenger.SendReply(ctx, rc.Message, text, rc.Message.MessageID); err != nil {
				return fmt.Errorf("reply with rewritten message: %w", err)
			}

			observability.MessagesDispatched.WithLabelValues("reply").Inc()
			log.Info().Msg("Replied with rewritten message")
		}
	}

	if rc.DiscountReply != "" {
		if err := d.messenger.SendReply(ctx, rc.Message, rc.DiscountReply, discountTarget); err != nil {
			return fmt.Errorf("reply with discount codes: %w", err)
		}

		observability.DiscountRepliesTotal.Inc()
		log.Info().Msg("Sent discount codes")
	}

	rc.State = StateDispatched

	return nil
}
