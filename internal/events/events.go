// Package events provides the internal domain-event bus. Subscribers are
// registered during startup and invoked synchronously, in subscription order,
// after the corresponding ledger write has committed. This keeps downstream
// ordering deterministic without a global emitter.
package events

import (
	"sync"

	"github.com/pathofhideout/vouchbot/internal/database/types"
	"go.uber.org/zap"
)

// VouchAddedFunc receives a vouch after it has been persisted.
type VouchAddedFunc func(vouch *types.Vouch)

// VouchDeletedFunc receives the origin message ID of a deleted vouch.
type VouchDeletedFunc func(messageID string)

// Bus dispatches vouch domain events to registered subscribers.
type Bus struct {
	mu           sync.RWMutex
	vouchAdded   []VouchAddedFunc
	vouchDeleted []VouchDeletedFunc
	logger       *zap.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger.Named("events")}
}

// SubscribeVouchAdded registers a handler for vouch-added events.
func (b *Bus) SubscribeVouchAdded(fn VouchAddedFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vouchAdded = append(b.vouchAdded, fn)
}

// SubscribeVouchDeleted registers a handler for vouch-deleted events.
func (b *Bus) SubscribeVouchDeleted(fn VouchDeletedFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vouchDeleted = append(b.vouchDeleted, fn)
}

// PublishVouchAdded notifies subscribers that a vouch was recorded.
func (b *Bus) PublishVouchAdded(vouch *types.Vouch) {
	b.mu.RLock()
	subscribers := b.vouchAdded
	b.mu.RUnlock()

	b.logger.Debug("Publishing vouch-added event",
		zap.String("message_id", vouch.MessageID),
		zap.Int("subscribers", len(subscribers)))

	for _, fn := range subscribers {
		fn(vouch)
	}
}

// PublishVouchDeleted notifies subscribers that a vouch was removed.
func (b *Bus) PublishVouchDeleted(messageID string) {
	b.mu.RLock()
	subscribers := b.vouchDeleted
	b.mu.RUnlock()

	b.logger.Debug("Publishing vouch-deleted event",
		zap.String("message_id", messageID),
		zap.Int("subscribers", len(subscribers)))

	for _, fn := range subscribers {
		fn(messageID)
	}
}
