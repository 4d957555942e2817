package constants

import "time"

const (
	// Reactions.
	SuccessReaction = "✅"
	FailureReaction = "❌"

	// Report embed colors.
	PositiveEmbedColor = 0x0B7C06
	WarningEmbedColor  = 0xBEC00C
	NegativeEmbedColor = 0xAF1010

	// Minimum interval between vouches from the same voucher to the same
	// vouched user, regardless of sign.
	VouchCooldown = 10 * time.Minute

	// Members younger than this carry a "new to server" warning.
	NewMemberWindow = 90 * 24 * time.Hour

	// Users below this many distinct vouchers carry a "new to trading" warning.
	MinUniqueVouchers = 5

	// Reasons longer than this are truncated in report embeds.
	ReasonPreviewLength = 30

	// Channel history page size for the offline backfill walk.
	HistoryPageSize = 100
)
