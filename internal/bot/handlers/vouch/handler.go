// Package vouch implements the message command pipeline: parsing vouch
// commands, validating them, recording them in the ledger and answering
// reputation queries.
package vouch

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/bot/client"
	"github.com/pathofhideout/vouchbot/internal/bot/constants"
	"github.com/pathofhideout/vouchbot/internal/bot/utils"
	"github.com/pathofhideout/vouchbot/internal/database/models"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/pathofhideout/vouchbot/internal/events"
	"go.uber.org/zap"
)

// Store is the ledger surface the handlers depend on.
type Store interface {
	InsertVouch(ctx context.Context, vouch *types.Vouch) (*types.Vouch, error)
	GetLastVouchBetween(ctx context.Context, voucherID, vouchedID string) (*types.Vouch, error)
	GetSummary(ctx context.Context, vouchedID string) (*types.VouchSummary, error)
}

// HandleOptions controls the handler's visible side effects. Live messages
// use the defaults; the backfill replay keeps reactions but suppresses
// channel alerts so old mistakes aren't re-announced.
type HandleOptions struct {
	React     bool
	AlertUser bool
}

// DefaultHandleOptions are the options used for live gateway messages.
func DefaultHandleOptions() HandleOptions {
	return HandleOptions{React: true, AlertUser: true}
}

// Handler processes one sign of vouch command. The increment and decrement
// pipelines are identical except for the command grammar, the recorded
// amount and the duplicate-mention check, so both are instances of this
// type.
type Handler struct {
	sign           int
	pattern        *regexp.Regexp
	chat           client.Chat
	store          Store
	bus            *events.Bus
	guildID        snowflake.ID
	vouchChannelID snowflake.ID
	logger         *zap.Logger
}

// NewIncrementHandler creates the handler for positive vouch commands.
func NewIncrementHandler(
	chat client.Chat, store Store, bus *events.Bus,
	guildID, vouchChannelID snowflake.ID, logger *zap.Logger,
) *Handler {
	return &Handler{
		sign:           1,
		pattern:        incrementPattern,
		chat:           chat,
		store:          store,
		bus:            bus,
		guildID:        guildID,
		vouchChannelID: vouchChannelID,
		logger:         logger.Named("vouch_increment"),
	}
}

// NewDecrementHandler creates the handler for negative vouch commands.
func NewDecrementHandler(
	chat client.Chat, store Store, bus *events.Bus,
	guildID, vouchChannelID snowflake.ID, logger *zap.Logger,
) *Handler {
	return &Handler{
		sign:           -1,
		pattern:        decrementPattern,
		chat:           chat,
		store:          store,
		bus:            bus,
		guildID:        guildID,
		vouchChannelID: vouchChannelID,
		logger:         logger.Named("vouch_decrement"),
	}
}

// Handle runs the validation pipeline for one message. Messages that aren't
// commands of this handler's sign pass through silently. Rejections are not
// errors; only infrastructure failures are returned.
func (h *Handler) Handle(ctx context.Context, msg *discord.Message, opts HandleOptions) error {
	if msg.Author.Bot ||
		msg.MentionEveryone ||
		msg.ChannelID != h.vouchChannelID {
		return nil
	}

	cmd := parseCommand(h.pattern, msg.Content)
	if cmd == nil {
		return nil
	}

	// Repeating the same mention would pass the distinct-mention check below
	// while still reading ambiguously, so negative vouches reject it outright.
	if h.sign < 0 && mentionsSameUserMultipleTimes(msg.Content) {
		h.react(ctx, msg, constants.FailureReaction, opts)
		h.alert(ctx, msg.ChannelID, fmt.Sprintf(
			"<@%s>, we don't allow you to vouch the same user multiple times in one message. "+
				"If they performed multiple services for you, please state that in the reason.",
			msg.Author.ID), opts)

		return nil
	}

	if len(mentionedIDs(msg.Content)) > 1 {
		h.alert(ctx, msg.ChannelID, fmt.Sprintf(
			"<@%s>, you may only vouch 1 user at a time.", msg.Author.ID), opts)

		return nil
	}

	vouchedID, err := snowflake.Parse(cmd.VouchedID)
	if err != nil {
		return fmt.Errorf("failed to parse mentioned user ID %q: %w", cmd.VouchedID, err)
	}

	vouchedUser, err := h.chat.GetUser(ctx, vouchedID)
	if err != nil {
		h.logger.Debug("Ignoring vouch for unresolvable user",
			zap.String("vouched_id", cmd.VouchedID),
			zap.Error(err))

		return nil
	}

	if _, err := h.chat.GetMember(ctx, h.guildFor(msg), vouchedID); err != nil {
		h.logger.Debug("Attempt to vouch someone outside guild",
			zap.String("vouched_id", cmd.VouchedID),
			zap.Error(err))
		h.react(ctx, msg, constants.FailureReaction, opts)
		h.alert(ctx, msg.ChannelID, fmt.Sprintf(
			"<@%s>, I couldn't add a vouch for %s because they aren't on our server.",
			msg.Author.ID, vouchedUser.Username), opts)

		return nil
	}

	if msg.Author.ID == vouchedID {
		h.react(ctx, msg, constants.FailureReaction, opts)
		h.alert(ctx, msg.ChannelID, fmt.Sprintf(
			"Nice try, <@%s>! Vouching yourself isn't allowed.", msg.Author.ID), opts)

		return nil
	}

	if cmd.Reason == "" {
		h.react(ctx, msg, constants.FailureReaction, opts)
		h.alert(ctx, msg.ChannelID, fmt.Sprintf(
			"<@%s>, a reason is necessary to vouch %s. Try again with the command `%s`.",
			msg.Author.ID, vouchedUser.Username, h.usageHint(vouchedUser.Username)), opts)

		return nil
	}

	last, err := h.store.GetLastVouchBetween(ctx, msg.Author.ID.String(), vouchedID.String())
	if err != nil {
		return fmt.Errorf("failed to look up last vouch: %w", err)
	}

	// Elapsed time is measured between message timestamps, not against the
	// wall clock, so backfilled history rate-limits the same way live
	// messages did.
	if last != nil {
		elapsed := msg.CreatedAt.Sub(last.CreatedAt)
		if elapsed < constants.VouchCooldown {
			h.react(ctx, msg, constants.FailureReaction, opts)
			h.alert(ctx, msg.ChannelID, fmt.Sprintf(
				"<@%s>, you can't vouch %s because you vouched them too recently. "+
					"You can vouch them again in %s.",
				msg.Author.ID, vouchedUser.Username,
				utils.FormatDuration(constants.VouchCooldown-elapsed)), opts)

			return nil
		}
	}

	vouch := &types.Vouch{
		MessageID: msg.ID.String(),
		VoucherID: msg.Author.ID.String(),
		VouchedID: vouchedID.String(),
		Amount:    h.sign,
		Reason:    cmd.Reason,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.CreatedAt,
	}

	inserted, err := h.store.InsertVouch(ctx, vouch)
	if err != nil {
		// The unique origin message constraint makes the insert the
		// idempotency point: a message already replayed is simply skipped.
		if errors.Is(err, models.ErrVouchExists) {
			h.logger.Debug("Vouch already recorded for message",
				zap.String("message_id", vouch.MessageID))

			return nil
		}

		return fmt.Errorf("failed to insert vouch: %w", err)
	}

	h.react(ctx, msg, constants.SuccessReaction, opts)
	h.bus.PublishVouchAdded(inserted)

	h.logger.Info("Recorded vouch",
		zap.String("message_id", inserted.MessageID),
		zap.String("voucher_id", inserted.VoucherID),
		zap.String("vouched_id", inserted.VouchedID),
		zap.Int("amount", inserted.Amount))

	return nil
}

// guildFor returns the guild a message belongs to. Messages fetched over
// REST during backfill carry no guild ID, so those fall back to the
// configured guild.
func (h *Handler) guildFor(msg *discord.Message) snowflake.ID {
	if msg.GuildID != nil {
		return *msg.GuildID
	}

	return h.guildID
}

func (h *Handler) usageHint(username string) string {
	if h.sign < 0 {
		return fmt.Sprintf("-vouch @%s <reason>", username)
	}

	return fmt.Sprintf("+vouch @%s <reason>", username)
}

func (h *Handler) react(ctx context.Context, msg *discord.Message, emoji string, opts HandleOptions) {
	if !opts.React {
		return
	}

	if err := h.chat.AddReaction(ctx, msg.ChannelID, msg.ID, emoji); err != nil {
		h.logger.Warn("Failed to add reaction",
			zap.String("message_id", msg.ID.String()),
			zap.Error(err))
	}
}

func (h *Handler) alert(ctx context.Context, channelID snowflake.ID, content string, opts HandleOptions) {
	if !opts.AlertUser {
		return
	}

	if err := h.chat.SendMessage(ctx, channelID, content); err != nil {
		h.logger.Warn("Failed to send alert", zap.Error(err))
	}
}
