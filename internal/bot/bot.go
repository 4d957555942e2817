// Package bot wires the Discord gateway to the vouch command pipeline.
package bot

import (
	"context"
	"sync"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	disgoevents "github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/pathofhideout/vouchbot/internal/bot/backfill"
	"github.com/pathofhideout/vouchbot/internal/bot/client"
	"github.com/pathofhideout/vouchbot/internal/bot/handlers/vouch"
	"github.com/pathofhideout/vouchbot/internal/database"
	"github.com/pathofhideout/vouchbot/internal/events"
	"github.com/pathofhideout/vouchbot/internal/setup/config"
)

// Bot owns the gateway connection and dispatches messages to the command
// handlers.
type Bot struct {
	client       disgobot.Client
	increment    *vouch.Handler
	decrement    *vouch.Handler
	check        *vouch.CheckHandler
	delete       *vouch.DeleteHandler
	reconciler   *backfill.Reconciler
	backfillOnce sync.Once
	logger       *zap.Logger
}

// New builds the handler graph and configures the Discord client with the
// gateway intents the pipeline needs. Message content requires the
// privileged intent to be enabled for the application.
func New(cfg *config.Config, db database.Client, bus *events.Bus, logger *zap.Logger) (*Bot, error) {
	b := &Bot{logger: logger.Named("bot")}

	discordClient, err := disgo.New(cfg.Discord.Token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
			gateway.WithPresenceOpts(
				gateway.WithPlayingActivity(cfg.Discord.Activity),
			),
		),
		disgobot.WithEventListeners(&disgoevents.ListenerAdapter{
			OnReady:         b.handleReady,
			OnMessageCreate: b.handleMessageCreate,
			OnMessageDelete: b.handleMessageDelete,
		}),
	)
	if err != nil {
		return nil, err
	}

	b.client = discordClient

	chat := client.NewChat(discordClient.Rest())
	store := db.Service()
	guildID := snowflake.ID(cfg.Discord.GuildID)
	vouchChannelID := snowflake.ID(cfg.Discord.VouchChannelID)
	suggestionsChannelID := snowflake.ID(cfg.Discord.SuggestionsChannelID)

	b.increment = vouch.NewIncrementHandler(chat, store, bus, guildID, vouchChannelID, logger)
	b.decrement = vouch.NewDecrementHandler(chat, store, bus, guildID, vouchChannelID, logger)
	b.check = vouch.NewCheckHandler(chat, store, guildID, vouchChannelID, suggestionsChannelID, logger)
	b.delete = vouch.NewDeleteHandler(store, bus, vouchChannelID, logger)
	b.reconciler = backfill.New(chat, store, b.decrement, b.increment, vouchChannelID, logger)

	return b, nil
}

// Start opens the gateway connection. Event dispatch begins as soon as the
// connection is up.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleReady kicks off the offline backfill. Reconnects fire the ready
// event again, so the walk only runs on the first one; later gaps are
// covered by the next restart.
func (b *Bot) handleReady(_ *disgoevents.Ready) {
	b.backfillOnce.Do(func() {
		go func() {
			if err := b.reconciler.Run(context.Background()); err != nil {
				b.logger.Error("Backfill failed", zap.Error(err))
			}
		}()
	})
}

// handleMessageCreate fans a message out to the three command handlers. At
// most one of them will act on it; the others pass through silently.
func (b *Bot) handleMessageCreate(event *disgoevents.MessageCreate) {
	msg := event.Message

	go func() {
		if err := b.increment.Handle(context.Background(), &msg, vouch.DefaultHandleOptions()); err != nil {
			b.logger.Error("Increment handler failed",
				zap.String("message_id", msg.ID.String()),
				zap.Error(err))
		}
	}()

	go func() {
		if err := b.decrement.Handle(context.Background(), &msg, vouch.DefaultHandleOptions()); err != nil {
			b.logger.Error("Decrement handler failed",
				zap.String("message_id", msg.ID.String()),
				zap.Error(err))
		}
	}()

	go func() {
		if err := b.check.Handle(context.Background(), &msg); err != nil {
			b.logger.Error("Check handler failed",
				zap.String("message_id", msg.ID.String()),
				zap.Error(err))
		}
	}()
}

// handleMessageDelete reconciles the ledger with a deleted message.
func (b *Bot) handleMessageDelete(event *disgoevents.MessageDelete) {
	go func() {
		if err := b.delete.Handle(context.Background(), event.ChannelID, event.MessageID); err != nil {
			b.logger.Error("Delete handler failed",
				zap.String("message_id", event.MessageID.String()),
				zap.Error(err))
		}
	}()
}
