package events

import (
	"testing"

	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPublishVouchAddedInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var order []string

	bus.SubscribeVouchAdded(func(*types.Vouch) { order = append(order, "first") })
	bus.SubscribeVouchAdded(func(*types.Vouch) { order = append(order, "second") })

	bus.PublishVouchAdded(&types.Vouch{MessageID: "500000000000000123"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishVouchDeleted(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string

	bus.SubscribeVouchDeleted(func(messageID string) { got = append(got, messageID) })

	bus.PublishVouchDeleted("500000000000000123")
	bus.PublishVouchDeleted("500000000000000124")

	assert.Equal(t, []string{"500000000000000123", "500000000000000124"}, got)
}

func TestPublishWithoutSubscribersIsANoOp(t *testing.T) {
	bus := NewBus(zap.NewNop())

	assert.NotPanics(t, func() {
		bus.PublishVouchAdded(&types.Vouch{MessageID: "500000000000000123"})
		bus.PublishVouchDeleted("500000000000000123")
	})
}
