package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/okian/tally/internal/adapters/repository/bunstore"
)

func tables() []any {
	return []any{
		(*bunstore.EventRow)(nil),
		(*bunstore.ParticipantRow)(nil),
		(*bunstore.ScoreRow)(nil),
		(*bunstore.ProfileRow)(nil),
		(*bunstore.SettingRow)(nil),
	}
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, m := range tables() {
				if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("create table: %w", err)
				}
			}
			// One score per judge and participant.
			if _, err := tx.NewCreateIndex().
				Model((*bunstore.ScoreRow)(nil)).
				Index("scores_judge_participant_uidx").
				Unique().
				IfNotExists().
				Column("judge_id", "participant_id").
				Exec(ctx); err != nil {
				return fmt.Errorf("create unique index: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, m := range tables() {
				if _, err := tx.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
					return fmt.Errorf("drop table: %w", err)
				}
			}
			return nil
		})
	})
}
