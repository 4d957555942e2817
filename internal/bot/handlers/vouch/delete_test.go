package vouch

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/pathofhideout/vouchbot/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (s *fakeStore) DeleteByMessageID(_ context.Context, messageID string) (bool, error) {
	for i, vouch := range s.vouches {
		if vouch.MessageID == messageID {
			s.vouches = append(s.vouches[:i], s.vouches[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

func TestDeleteHandleRemovesVouch(t *testing.T) {
	store := &fakeStore{vouches: []*types.Vouch{{
		MessageID: "500000000000000123",
		VoucherID: voucherID.String(),
		VouchedID: vouchedID.String(),
		Amount:    1,
		Reason:    "fast trade",
		CreatedAt: time.Now(),
	}}}

	bus := events.NewBus(zap.NewNop())

	var deletedIDs []string
	bus.SubscribeVouchDeleted(func(messageID string) {
		deletedIDs = append(deletedIDs, messageID)
	})

	handler := NewDeleteHandler(store, bus, testChannelID, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(),
		testChannelID, snowflake.ID(500000000000000123)))

	assert.Empty(t, store.vouches)
	assert.Equal(t, []string{"500000000000000123"}, deletedIDs)

	// A second deletion of the same message finds nothing and publishes
	// nothing.
	require.NoError(t, handler.Handle(context.Background(),
		testChannelID, snowflake.ID(500000000000000123)))
	assert.Len(t, deletedIDs, 1)
}

func TestDeleteHandleIgnoresOtherChannels(t *testing.T) {
	store := &fakeStore{vouches: []*types.Vouch{{MessageID: "500000000000000123"}}}
	handler := NewDeleteHandler(store, events.NewBus(zap.NewNop()), testChannelID, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(),
		testChannelID+1, snowflake.ID(500000000000000123)))

	assert.Len(t, store.vouches, 1)
}
