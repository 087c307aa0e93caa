package persistence

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	auth "github.com/goliatone/go-auth-starter"
)

// Migrate applies the embedded migrations for driver and returns the
// names of the migrations that ran.
func Migrate(ctx context.Context, db *bun.DB, driver Driver) ([]string, error) {
	fsys, err := auth.GetDialectMigrationsFS(string(driver))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("migrations for %s", driver))
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "init migrations")
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "lock migrations")
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "run migrations")
	}

	if group.IsZero() {
		return nil, nil
	}

	names := make([]string, 0, len(group.Migrations))
	for _, m := range group.Migrations {
		names = append(names, m.Name)
	}
	return names, nil
}
