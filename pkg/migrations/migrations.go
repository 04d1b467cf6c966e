package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema migration; each file registers itself in
// init.
var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator over Migrations. A migration is only marked
// applied once it succeeds so a failed one runs again next time.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations, migrate.WithMarkAppliedOnSuccess(true))
}

// BringUpToDate creates the migration tables if needed and applies every
// pending migration while holding the migration lock.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to take the migration lock")
	}
	group, err := migrator.Migrate(ctx)
	if unlockErr := migrator.Unlock(ctx); unlockErr != nil && err == nil {
		err = errors.Wrap(unlockErr, "failed to release the migration lock")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}
