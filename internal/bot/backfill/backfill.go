// Package backfill replays vouch channel messages that arrived while the bot
// was offline through the regular command pipeline.
package backfill

import (
	"context"
	"fmt"
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/bot/client"
	"github.com/pathofhideout/vouchbot/internal/bot/constants"
	"github.com/pathofhideout/vouchbot/internal/bot/handlers/vouch"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"go.uber.org/zap"
)

// Store is the ledger surface the reconciler depends on.
type Store interface {
	GetLastVouch(ctx context.Context) (*types.Vouch, error)
}

// Reconciler walks the vouch channel backward to the last recorded vouch and
// replays everything newer through the command handlers. Replayed messages
// keep their reactions but never alert the channel.
type Reconciler struct {
	chat      client.Chat
	store     Store
	decrement *vouch.Handler
	increment *vouch.Handler
	channelID snowflake.ID
	logger    *zap.Logger
}

// New creates a backfill reconciler.
func New(
	chat client.Chat, store Store,
	decrement, increment *vouch.Handler,
	channelID snowflake.ID, logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		chat:      chat,
		store:     store,
		decrement: decrement,
		increment: increment,
		channelID: channelID,
		logger:    logger.Named("backfill"),
	}
}

// Run reconciles the channel history once. With an empty ledger there is no
// resume point, so the channel is left alone rather than replayed from the
// beginning of time.
func (r *Reconciler) Run(ctx context.Context) error {
	last, err := r.store.GetLastVouch(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last vouch: %w", err)
	}

	if last == nil {
		r.logger.Info("Ledger is empty, skipping backfill")
		return nil
	}

	lastMessageID, err := snowflake.Parse(last.MessageID)
	if err != nil {
		return fmt.Errorf("failed to parse last vouch message ID %q: %w", last.MessageID, err)
	}

	pending, err := r.unprocessedMessages(ctx, lastMessageID)
	if err != nil {
		return fmt.Errorf("failed to collect unprocessed messages: %w", err)
	}

	r.logger.Info("Replaying offline messages", zap.Int("count", len(pending)))

	opts := vouch.HandleOptions{React: true, AlertUser: false}

	for i := range pending {
		msg := &pending[i]

		if err := r.decrement.Handle(ctx, msg, opts); err != nil {
			return fmt.Errorf("failed to replay message %s: %w", msg.ID, err)
		}

		if err := r.increment.Handle(ctx, msg, opts); err != nil {
			return fmt.Errorf("failed to replay message %s: %w", msg.ID, err)
		}
	}

	return nil
}

// unprocessedMessages pages backward from the newest message until it passes
// the last recorded vouch, then returns everything newer in chronological
// order.
func (r *Reconciler) unprocessedMessages(ctx context.Context, lastMessageID snowflake.ID) ([]discord.Message, error) {
	var pending []discord.Message

	before := snowflake.ID(0)

	for {
		batch, err := r.chat.GetMessagesBefore(ctx, r.channelID, before, constants.HistoryPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch message batch: %w", err)
		}

		if len(batch) == 0 {
			return pending, nil
		}

		// Batches arrive newest first. Everything at and past the last
		// recorded vouch is already in the ledger.
		done := false

		if idx := slices.IndexFunc(batch, func(msg discord.Message) bool {
			return msg.ID == lastMessageID
		}); idx >= 0 {
			batch = batch[:idx]
			done = true
		}

		slices.Reverse(batch)
		pending = append(batch, pending...)

		if done {
			return pending, nil
		}

		before = pending[0].ID
	}
}
