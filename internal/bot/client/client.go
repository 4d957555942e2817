// Package client narrows the Discord client to the capabilities the command
// pipeline actually uses, so handlers can be exercised without a gateway
// connection.
package client

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Chat is the minimal chat-platform surface consumed by the vouch handlers.
// Implementations must be safe for concurrent use.
type Chat interface {
	// GetUser resolves a user by ID; fails for unknown or unfetchable users.
	GetUser(ctx context.Context, userID snowflake.ID) (*discord.User, error)
	// GetMember resolves a guild member; fails for non-members.
	GetMember(ctx context.Context, guildID, userID snowflake.ID) (*discord.Member, error)
	// GetMessage fetches a single channel message.
	GetMessage(ctx context.Context, channelID, messageID snowflake.ID) (*discord.Message, error)
	// GetMessagesBefore fetches up to limit messages older than before,
	// newest first. A zero before starts from the newest message.
	GetMessagesBefore(ctx context.Context, channelID, before snowflake.ID, limit int) ([]discord.Message, error)
	// SendMessage sends a plain text message to a channel.
	SendMessage(ctx context.Context, channelID snowflake.ID, content string) error
	// SendEmbed sends an embed to a channel.
	SendEmbed(ctx context.Context, channelID snowflake.ID, embed discord.Embed) error
	// AddReaction adds a reaction emoji to a message.
	AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error
}

// restChat implements Chat over the disgo REST client.
type restChat struct {
	rest rest.Rest
}

// NewChat wraps a disgo REST client in the Chat interface.
func NewChat(rest rest.Rest) Chat {
	return &restChat{rest: rest}
}

func (c *restChat) GetUser(ctx context.Context, userID snowflake.ID) (*discord.User, error) {
	return c.rest.GetUser(userID, rest.WithCtx(ctx))
}

func (c *restChat) GetMember(ctx context.Context, guildID, userID snowflake.ID) (*discord.Member, error) {
	return c.rest.GetMember(guildID, userID, rest.WithCtx(ctx))
}

func (c *restChat) GetMessage(ctx context.Context, channelID, messageID snowflake.ID) (*discord.Message, error) {
	return c.rest.GetMessage(channelID, messageID, rest.WithCtx(ctx))
}

func (c *restChat) GetMessagesBefore(ctx context.Context, channelID, before snowflake.ID, limit int) ([]discord.Message, error) {
	return c.rest.GetMessages(channelID, 0, before, 0, limit, rest.WithCtx(ctx))
}

func (c *restChat) SendMessage(ctx context.Context, channelID snowflake.ID, content string) error {
	_, err := c.rest.CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))

	return err
}

func (c *restChat) SendEmbed(ctx context.Context, channelID snowflake.ID, embed discord.Embed) error {
	_, err := c.rest.CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))

	return err
}

func (c *restChat) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	return c.rest.AddReaction(channelID, messageID, emoji, rest.WithCtx(ctx))
}
