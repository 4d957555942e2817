package migrations

import (
	"context"
	"fmt"

	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Create the vouches table; the unique constraint on message_id is
		// what makes live and backfill processing idempotent
		if _, err := db.NewCreateTable().
			Model((*types.Vouch)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create vouches table: %w", err)
		}

		// Secondary indexes for the pair lookups and summary aggregates
		indexes := []struct {
			name   string
			column string
		}{
			{"idx_vouches_voucher_id", "voucher_id"},
			{"idx_vouches_vouched_id", "vouched_id"},
		}

		for _, idx := range indexes {
			if _, err := db.NewCreateIndex().
				Model((*types.Vouch)(nil)).
				Index(idx.name).
				Column(idx.column).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().
			Model((*types.Vouch)(nil)).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop vouches table: %w", err)
		}

		return nil
	})
}
