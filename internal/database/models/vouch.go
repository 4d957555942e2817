package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pathofhideout/vouchbot/internal/database/dbretry"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// ErrVouchExists indicates a vouch for the same origin message was already
// recorded. Callers treat this as "already processed", not as a fault; it is
// what keeps concurrent handlers and backfill replay idempotent.
var ErrVouchExists = errors.New("vouch already exists for message")

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// VouchModel handles database operations for vouch records.
type VouchModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewVouch creates a new vouch model.
func NewVouch(db *bun.DB, logger *zap.Logger) *VouchModel {
	return &VouchModel{
		db:     db,
		logger: logger.Named("db_vouch"),
	}
}

// InsertVouch persists a new vouch record and fills in its generated ID.
// The insert is the linearization point for duplicate message handling:
// a unique-violation on message_id is returned as ErrVouchExists.
func (r *VouchModel) InsertVouch(ctx context.Context, vouch *types.Vouch) (*types.Vouch, error) {
	_, err := r.db.NewInsert().
		Model(vouch).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVouchExists
		}

		return nil, fmt.Errorf("failed to insert vouch: %w", err)
	}

	return vouch, nil
}

// GetLastVouchBetween returns the most recent vouch from voucher to vouched,
// regardless of sign, or nil when the pair has no history.
func (r *VouchModel) GetLastVouchBetween(ctx context.Context, voucherID, vouchedID string) (*types.Vouch, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Vouch, error) {
		var vouch types.Vouch

		err := r.db.NewSelect().
			Model(&vouch).
			Where("voucher_id = ?", voucherID).
			Where("vouched_id = ?", vouchedID).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to get last vouch for pair: %w", err)
		}

		return &vouch, nil
	})
}

// GetLastVouch returns the most recently created vouch across all users, or
// nil when the ledger is empty. Used to seed the offline backfill walk.
func (r *VouchModel) GetLastVouch(ctx context.Context) (*types.Vouch, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Vouch, error) {
		var vouch types.Vouch

		err := r.db.NewSelect().
			Model(&vouch).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to get last vouch: %w", err)
		}

		return &vouch, nil
	})
}

// DeleteByMessageID removes the vouch created by the given origin message.
// Deleting a message with no record is a no-op; the call is idempotent.
// Returns whether a record was actually deleted.
func (r *VouchModel) DeleteByMessageID(ctx context.Context, messageID string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*types.Vouch)(nil)).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete vouch: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return rows > 0, nil
}

// CountVouches counts the vouches received by a user with the given amount.
func (r *VouchModel) CountVouches(ctx context.Context, vouchedID string, amount int) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vouch)(nil)).
			Where("vouched_id = ?", vouchedID).
			Where("amount = ?", amount).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count vouches: %w", err)
		}

		return count, nil
	})
}

// CountUniqueVouchers counts the distinct users who vouched for a user.
func (r *VouchModel) CountUniqueVouchers(ctx context.Context, vouchedID string) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		var count int

		err := r.db.NewSelect().
			Model((*types.Vouch)(nil)).
			ColumnExpr("COUNT(DISTINCT voucher_id)").
			Where("vouched_id = ?", vouchedID).
			Scan(ctx, &count)
		if err != nil {
			return 0, fmt.Errorf("failed to count unique vouchers: %w", err)
		}

		return count, nil
	})
}

// GetRecentVouches returns up to limit vouches of the given sign received by
// a user, newest first.
func (r *VouchModel) GetRecentVouches(ctx context.Context, vouchedID string, amount, limit int) ([]*types.Vouch, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Vouch, error) {
		var vouches []*types.Vouch

		err := r.db.NewSelect().
			Model(&vouches).
			Where("vouched_id = ?", vouchedID).
			Where("amount = ?", amount).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent vouches: %w", err)
		}

		return vouches, nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error

	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
