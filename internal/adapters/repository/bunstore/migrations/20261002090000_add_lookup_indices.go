package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range []string{
				`CREATE INDEX IF NOT EXISTS idx_scores_event_id ON scores(event_id)`,
				`CREATE INDEX IF NOT EXISTS idx_participants_event_id ON participants(event_id)`,
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to add index: %w", err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range []string{
				`DROP INDEX IF EXISTS idx_scores_event_id`,
				`DROP INDEX IF EXISTS idx_participants_event_id`,
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to drop index: %w", err)
				}
			}
			return nil
		})
	})
}
