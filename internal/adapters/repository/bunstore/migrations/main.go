// Package migrations holds the schema migrations of the bun record store.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry every migration file adds itself to.
var Migrations = migrate.NewMigrations()

// Apply creates the migration tables if needed and runs pending migrations.
// It returns the id of the applied group, 0 when nothing was pending.
func Apply(ctx context.Context, db *bun.DB) (int64, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return 0, fmt.Errorf("migrations.Apply: init: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations.Apply: %w", err)
	}
	return group.ID, nil
}
