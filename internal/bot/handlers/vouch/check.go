package vouch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/bot/client"
	"github.com/pathofhideout/vouchbot/internal/bot/constants"
	"github.com/pathofhideout/vouchbot/internal/bot/utils"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"go.uber.org/zap"
)

// CheckHandler answers reputation query commands with a report embed.
type CheckHandler struct {
	chat                 client.Chat
	store                Store
	guildID              snowflake.ID
	vouchChannelID       snowflake.ID
	suggestionsChannelID snowflake.ID
	logger               *zap.Logger
}

// NewCheckHandler creates the handler for report query commands.
func NewCheckHandler(
	chat client.Chat, store Store,
	guildID, vouchChannelID, suggestionsChannelID snowflake.ID, logger *zap.Logger,
) *CheckHandler {
	return &CheckHandler{
		chat:                 chat,
		store:                store,
		guildID:              guildID,
		vouchChannelID:       vouchChannelID,
		suggestionsChannelID: suggestionsChannelID,
		logger:               logger.Named("vouch_check"),
	}
}

// Handle answers a report query. Non-query messages pass through silently,
// as do queries for users that cannot be resolved.
func (h *CheckHandler) Handle(ctx context.Context, msg *discord.Message) error {
	if msg.Author.Bot ||
		msg.MentionEveryone ||
		msg.ChannelID != h.vouchChannelID {
		return nil
	}

	queried := ParseQuery(msg.Content)
	if queried == "" {
		return nil
	}

	userID, err := snowflake.Parse(queried)
	if err != nil {
		return fmt.Errorf("failed to parse queried user ID %q: %w", queried, err)
	}

	user, err := h.chat.GetUser(ctx, userID)
	if err != nil {
		h.logger.Debug("Ignoring report query for unresolvable user",
			zap.String("user_id", queried),
			zap.Error(err))

		return nil
	}

	summary, err := h.store.GetSummary(ctx, userID.String())
	if err != nil {
		return fmt.Errorf("failed to get vouch summary: %w", err)
	}

	// Membership is optional for reports: non-members still have history
	// worth showing, they just carry a warning.
	guildID := h.guildID
	if msg.GuildID != nil {
		guildID = *msg.GuildID
	}

	member, err := h.chat.GetMember(ctx, guildID, userID)
	if err != nil {
		member = nil
	}

	embed := h.buildReport(ctx, msg.ChannelID, user, member, summary)
	if err := h.chat.SendEmbed(ctx, msg.ChannelID, embed); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	return nil
}

func (h *CheckHandler) buildReport(
	ctx context.Context, channelID snowflake.ID,
	user *discord.User, member *discord.Member, summary *types.VouchSummary,
) discord.Embed {
	var joinedAt *time.Time
	if member != nil {
		t := member.JoinedAt
		joinedAt = &t
	}

	builder := discord.NewEmbedBuilder().
		SetColor(reportColor(summary.VouchScore, summary.UniqueVouchers, joinedAt)).
		SetTitle(reportTitle(user, member)).
		SetDescription(fmt.Sprintf("<@%s>", user.ID))

	if notes := cautionNotes(joinedAt, summary.UniqueVouchers); len(notes) > 0 {
		builder.AddField("⚠️ Use caution when trading", strings.Join(notes, "\n"), false)
	}

	builder.
		AddField("Vouch Score", fmt.Sprintf("%d", summary.VouchScore), true).
		AddField("Positive", fmt.Sprintf("%d", summary.PositiveVouches), true).
		AddField("Negative", fmt.Sprintf("%d", summary.NegativeVouches), true).
		AddField("Unique Vouchers", fmt.Sprintf("%d", summary.UniqueVouchers), false)

	if len(summary.RecentPositiveVouches) > 0 {
		builder.AddField("Recent Positive Vouches",
			h.recentVouchLines(ctx, channelID, summary.RecentPositiveVouches), false)
	}

	if len(summary.RecentNegativeVouches) > 0 {
		builder.AddField("Recent Negative Vouches",
			h.recentVouchLines(ctx, channelID, summary.RecentNegativeVouches), false)
	}

	builder.
		AddField("Account Age", "created "+utils.FormatTimeAgo(user.ID.Time()), true).
		AddField("Server Age", serverAge(joinedAt), true).
		AddField("---", fmt.Sprintf(
			"Have issues with the report? Let us know in <#%s>!", h.suggestionsChannelID), false)

	return builder.Build()
}

// recentVouchLines renders one line per vouch, deep-linking the origin
// message when it still exists and falling back to plain text when it
// doesn't.
func (h *CheckHandler) recentVouchLines(
	ctx context.Context, channelID snowflake.ID, vouches []*types.Vouch,
) string {
	lines := make([]string, 0, len(vouches))

	for _, vouch := range vouches {
		age := utils.FormatTimeAgo(vouch.CreatedAt)
		reason := truncateReason(vouch.Reason)

		messageID, err := snowflake.Parse(vouch.MessageID)
		if err == nil {
			if _, err := h.chat.GetMessage(ctx, channelID, messageID); err == nil {
				lines = append(lines, fmt.Sprintf("[%s by](%s) <@%s>: *%s*",
					age, messageURL(h.guildID, channelID, messageID), vouch.VoucherID, reason))

				continue
			}
		}

		lines = append(lines, fmt.Sprintf("%s by <@%s>: *%s*", age, vouch.VoucherID, reason))
	}

	return strings.Join(lines, "\n")
}

func reportTitle(user *discord.User, member *discord.Member) string {
	title := "@" + user.Username

	if member != nil && member.Nick != nil && *member.Nick != "" {
		title += fmt.Sprintf(" (aka %s)", *member.Nick)
	}

	return title + "'s Report"
}

func reportColor(vouchScore, uniqueVouchers int, joinedAt *time.Time) int {
	if joinedAt == nil || isNewToServer(*joinedAt) {
		return constants.WarningEmbedColor
	}

	if uniqueVouchers < constants.MinUniqueVouchers || vouchScore == 0 {
		return constants.WarningEmbedColor
	}

	if vouchScore > 0 {
		return constants.PositiveEmbedColor
	}

	return constants.NegativeEmbedColor
}

func cautionNotes(joinedAt *time.Time, uniqueVouchers int) []string {
	var notes []string

	if joinedAt != nil && isNewToServer(*joinedAt) {
		remaining := constants.NewMemberWindow - time.Since(*joinedAt)
		notes = append(notes, fmt.Sprintf(
			"• User is new to our server. This warning will disappear in %s.",
			utils.FormatDuration(remaining)))
	}

	if uniqueVouchers < constants.MinUniqueVouchers {
		notes = append(notes, fmt.Sprintf(
			"• User is new to trading. This warning will disappear when the user reaches %d unique vouchers.",
			constants.MinUniqueVouchers))
	}

	return notes
}

func serverAge(joinedAt *time.Time) string {
	if joinedAt == nil {
		return "User isn't on our server"
	}

	return "joined " + utils.FormatTimeAgo(*joinedAt)
}

func isNewToServer(joinedAt time.Time) bool {
	return time.Since(joinedAt) < constants.NewMemberWindow
}

func truncateReason(reason string) string {
	if len(reason) > constants.ReasonPreviewLength {
		return reason[:constants.ReasonPreviewLength] + "..."
	}

	return reason
}

func messageURL(guildID, channelID, messageID snowflake.ID) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
