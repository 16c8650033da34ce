// Package telegrambot connects the rewrite engine to Telegram: it receives group messages,
// answers discount commands and sends the rewritten messages back.
package telegrambot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/affiliate-link-bot/internal/core/affiliate"
	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/worker"
)

const updateTimeoutSeconds = 60

// Message statuses for the received-messages counter.
const (
	statusNoSender     = "skipped_no_sender"
	statusNoText       = "skipped_no_text"
	statusNotGroup     = "skipped_not_group"
	statusExcluded     = "skipped_excluded"
	statusNotLoaded    = "skipped_not_loaded"
	statusDiscountCmd  = "discount_command"
	statusUnmodified   = "unmodified"
	statusProcessed    = "processed"
	statusDispatchFail = "dispatch_failed"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// SnapshotSource returns the configuration to use for the next message.
type SnapshotSource interface {
	Current() *attribution.Snapshot
}

// Processor rewrites message text.
type Processor interface {
	Process(ctx context.Context, snap *attribution.Snapshot, msg affiliate.MessageRef, text string) (*affiliate.RewriteContext, bool)
	DiscountCodes(snap *attribution.Snapshot) string
}

// Dispatcher sends a processed message back to the chat.
type Dispatcher interface {
	Dispatch(ctx context.Context, snap *attribution.Snapshot, rc *affiliate.RewriteContext) error
}

// Deps are the collaborators of the bot.
type Deps struct {
	Snapshots  SnapshotSource
	Processor  Processor
	Dispatcher Dispatcher
}

type Bot struct {
	api       API
	messenger *Messenger
	deps      Deps
	logger    *zerolog.Logger
}

// NewAPI logs in with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return api, nil
}

func New(api API, deps Deps, logger *zerolog.Logger) *Bot {
	return &Bot{
		api:       api,
		messenger: NewMessenger(api, logger),
		deps:      deps,
		logger:    logger,
	}
}

// Run polls for updates until ctx is canceled or the update channel closes.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info().Msg("Bot started")

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot stopped: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update. Panics are logged and swallowed so one bad message does
// not stop the loop.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer worker.RecoverPanic(b.logger, "handle update")

	if update.Message == nil {
		return
	}

	b.handleMessage(ctx, update.Message)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		observability.MessagesReceived.WithLabelValues(statusNoSender).Inc()

		return
	}

	snap := b.deps.Snapshots.Current()
	if snap == nil {
		observability.MessagesReceived.WithLabelValues(statusNotLoaded).Inc()
		b.logger.Warn().Int("message_id", msg.MessageID).Msg("configuration not loaded, ignoring message")

		return
	}

	settings := snap.Settings()

	if msg.IsCommand() && isDiscountCommand(settings.DiscountCommandKeywords, msg.Command()) {
		observability.MessagesReceived.WithLabelValues(statusDiscountCmd).Inc()
		b.handleDiscountCommand(ctx, snap, msg)

		return
	}

	if msg.Text == "" {
		observability.MessagesReceived.WithLabelValues(statusNoText).Inc()

		return
	}

	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		observability.MessagesReceived.WithLabelValues(statusNotGroup).Inc()

		return
	}

	if isExcluded(settings.ExcludedUsers, msg.From) {
		observability.MessagesReceived.WithLabelValues(statusExcluded).Inc()
		b.logger.Debug().Int64("user_id", msg.From.ID).Str("username", msg.From.UserName).Msg("user excluded")

		return
	}

	rc, ok := b.deps.Processor.Process(ctx, snap, messageRef(msg), msg.Text)
	if !ok {
		observability.MessagesReceived.WithLabelValues(statusUnmodified).Inc()

		return
	}

	if err := b.deps.Dispatcher.Dispatch(ctx, snap, rc); err != nil {
		observability.MessagesReceived.WithLabelValues(statusDispatchFail).Inc()
		b.logger.Error().Err(err).
			Str("rewrite_id", rc.ID).
			Int("message_id", msg.MessageID).
			Int64("chat_id", msg.Chat.ID).
			Msg("failed to dispatch rewritten message")

		return
	}

	observability.MessagesReceived.WithLabelValues(statusProcessed).Inc()
}

func (b *Bot) handleDiscountCommand(ctx context.Context, snap *attribution.Snapshot, msg *tgbotapi.Message) {
	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("Handling discount command")

	codes := b.deps.Processor.DiscountCodes(snap)
	if codes == "" {
		return
	}

	ref := messageRef(msg)
	if err := b.messenger.SendReply(ctx, ref, codes, msg.MessageID); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", ref.ChatID).Msg("failed to send discount codes")
	}
}

func messageRef(msg *tgbotapi.Message) affiliate.MessageRef {
	ref := affiliate.MessageRef{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}

	if msg.ReplyToMessage != nil {
		ref.ReplyToMessageID = msg.ReplyToMessage.MessageID
	}

	return ref
}
