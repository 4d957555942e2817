package vouch

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/events"
	"go.uber.org/zap"
)

// Deleter is the ledger surface the delete handler depends on.
type Deleter interface {
	DeleteByMessageID(ctx context.Context, messageID string) (bool, error)
}

// DeleteHandler keeps the ledger consistent with the channel: when a vouch's
// origin message is deleted, so is the vouch.
type DeleteHandler struct {
	store          Deleter
	bus            *events.Bus
	vouchChannelID snowflake.ID
	logger         *zap.Logger
}

// NewDeleteHandler creates the handler for message deletions.
func NewDeleteHandler(store Deleter, bus *events.Bus, vouchChannelID snowflake.ID, logger *zap.Logger) *DeleteHandler {
	return &DeleteHandler{
		store:          store,
		bus:            bus,
		vouchChannelID: vouchChannelID,
		logger:         logger.Named("vouch_delete"),
	}
}

// Handle removes the vouch created by a deleted message, if one exists.
// Deleting a message that never produced a vouch is a no-op.
func (h *DeleteHandler) Handle(ctx context.Context, channelID, messageID snowflake.ID) error {
	if channelID != h.vouchChannelID {
		return nil
	}

	deleted, err := h.store.DeleteByMessageID(ctx, messageID.String())
	if err != nil {
		return fmt.Errorf("failed to delete vouch: %w", err)
	}

	if !deleted {
		return nil
	}

	h.logger.Info("Removed vouch for deleted message",
		zap.String("message_id", messageID.String()))
	h.bus.PublishVouchDeleted(messageID.String())

	return nil
}
