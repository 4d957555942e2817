package vouch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/bot/constants"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSuggestionsChannelID = snowflake.ID(900000000000000003)

func timePtr(t time.Time) *time.Time { return &t }

func TestReportColor(t *testing.T) {
	oldJoin := timePtr(time.Now().Add(-constants.NewMemberWindow - 24*time.Hour))
	newJoin := timePtr(time.Now().Add(-24 * time.Hour))

	tests := []struct {
		name     string
		score    int
		unique   int
		joinedAt *time.Time
		want     int
	}{
		{name: "not on server", score: 10, unique: 10, joinedAt: nil, want: constants.WarningEmbedColor},
		{name: "new to server", score: 10, unique: 10, joinedAt: newJoin, want: constants.WarningEmbedColor},
		{name: "too few unique vouchers", score: 10, unique: 4, joinedAt: oldJoin, want: constants.WarningEmbedColor},
		{name: "zero score", score: 0, unique: 10, joinedAt: oldJoin, want: constants.WarningEmbedColor},
		{name: "positive", score: 3, unique: 6, joinedAt: oldJoin, want: constants.PositiveEmbedColor},
		{name: "negative", score: -2, unique: 6, joinedAt: oldJoin, want: constants.NegativeEmbedColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportColor(tt.score, tt.unique, tt.joinedAt))
		})
	}
}

func TestTruncateReason(t *testing.T) {
	assert.Equal(t, "short reason", truncateReason("short reason"))

	long := strings.Repeat("a", constants.ReasonPreviewLength+5)
	got := truncateReason(long)
	assert.Equal(t, strings.Repeat("a", constants.ReasonPreviewLength)+"...", got)
}

func TestReportTitle(t *testing.T) {
	user := &discord.User{Username: "seller"}
	assert.Equal(t, "@seller's Report", reportTitle(user, nil))

	nick := "bestseller"
	member := &discord.Member{Nick: &nick}
	assert.Equal(t, "@seller (aka bestseller)'s Report", reportTitle(user, member))
}

func TestCheckHandleSendsReport(t *testing.T) {
	chat := newFakeChat()
	chat.addUser(vouchedID, "seller", true)
	chat.addUser(voucherID, "buyer", true)
	chat.members[vouchedID].JoinedAt = time.Now().Add(-24 * time.Hour)

	store := &fakeStore{}
	base := time.Now().Add(-time.Hour)
	originMsg := newMessage(voucherID, "+1 placeholder", base)
	chat.messages[originMsg.ID] = originMsg

	store.vouches = []*types.Vouch{
		{
			MessageID: originMsg.ID.String(),
			VoucherID: voucherID.String(),
			VouchedID: vouchedID.String(),
			Amount:    1,
			Reason:    "sold me a mirror of kalandra, would trade again",
			CreatedAt: base,
		},
		{
			MessageID: "999999999999999999",
			VoucherID: otherUserID.String(),
			VouchedID: vouchedID.String(),
			Amount:    -1,
			Reason:    "slow",
			CreatedAt: base.Add(time.Minute),
		},
	}

	handler := NewCheckHandler(chat, store, testGuildID, testChannelID,
		testSuggestionsChannelID, zap.NewNop())

	msg := newMessage(voucherID, fmt.Sprintf("?vouch <@%d>", vouchedID), time.Now())
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, chat.embeds, 1)
	embed := chat.embeds[0]

	assert.Equal(t, "@seller's Report", embed.Title)
	assert.Equal(t, fmt.Sprintf("<@%d>", vouchedID), embed.Description)
	assert.Equal(t, constants.WarningEmbedColor, embed.Color)

	fields := make(map[string]string, len(embed.Fields))
	for _, field := range embed.Fields {
		fields[field.Name] = field.Value
	}

	assert.Equal(t, "0", fields["Vouch Score"])
	assert.Equal(t, "1", fields["Positive"])
	assert.Equal(t, "1", fields["Negative"])
	assert.Equal(t, "2", fields["Unique Vouchers"])

	// The caution field fires on the fresh join date and the low voucher
	// count at once.
	caution := fields["⚠️ Use caution when trading"]
	assert.Contains(t, caution, "new to our server")
	assert.Contains(t, caution, "new to trading")

	// The surviving origin message gets a deep link, the deleted one a
	// plain-text line. The over-long reason is truncated.
	positive := fields["Recent Positive Vouches"]
	assert.Contains(t, positive, "https://discord.com/channels/")
	assert.Contains(t, positive, "sold me a mirror of kalandra, ...")

	negative := fields["Recent Negative Vouches"]
	assert.NotContains(t, negative, "https://discord.com/channels/")
	assert.Contains(t, negative, "*slow*")

	assert.Contains(t, fields["---"], fmt.Sprintf("<#%d>", testSuggestionsChannelID))
}

func TestCheckHandleIgnoresNonQueries(t *testing.T) {
	chat := newFakeChat()
	chat.addUser(vouchedID, "seller", true)

	handler := NewCheckHandler(chat, &fakeStore{}, testGuildID, testChannelID,
		testSuggestionsChannelID, zap.NewNop())

	msg := newMessage(voucherID, fmt.Sprintf("+1 <@%d> not a query", vouchedID), time.Now())
	require.NoError(t, handler.Handle(context.Background(), msg))

	assert.Empty(t, chat.embeds)
}

func TestCheckHandleNonMemberReport(t *testing.T) {
	chat := newFakeChat()
	chat.addUser(vouchedID, "seller", false)

	handler := NewCheckHandler(chat, &fakeStore{}, testGuildID, testChannelID,
		testSuggestionsChannelID, zap.NewNop())

	msg := newMessage(voucherID, fmt.Sprintf("?v <@%d>", vouchedID), time.Now())
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, chat.embeds, 1)
	embed := chat.embeds[0]
	assert.Equal(t, constants.WarningEmbedColor, embed.Color)

	var serverAgeValue string
	for _, field := range embed.Fields {
		if field.Name == "Server Age" {
			serverAgeValue = field.Value
		}
	}

	assert.Equal(t, "User isn't on our server", serverAgeValue)
}
