package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Vouch is a single signed endorsement recorded from a chat message.
// Rows are append-only: they are created once with the origin message's
// timestamp and never updated in place.
type Vouch struct {
	bun.BaseModel `bun:"table:vouches"`

	ID        int64     `bun:"id,pk,autoincrement"`
	MessageID string    `bun:"message_id,notnull,unique"` // Origin message ID, idempotency key
	VoucherID string    `bun:"voucher_id,notnull"`        // User giving the vouch
	VouchedID string    `bun:"vouched_id,notnull"`        // User receiving the vouch
	Amount    int       `bun:"amount,notnull"`            // +1 or -1
	Reason    string    `bun:"reason,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// VouchSummary is the aggregated reputation of a single user. It is computed
// fresh on every query and never persisted.
type VouchSummary struct {
	VouchScore            int
	PositiveVouches       int
	NegativeVouches       int
	UniqueVouchers        int
	RecentPositiveVouches []*Vouch
	RecentNegativeVouches []*Vouch
}
