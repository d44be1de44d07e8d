// Package migrations holds the bun migrations for the kwikly schema. Each Go
// file registers one step named after its file; the SQL lives next to it.
package migrations

import (
	"context"
	"embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var sqlFiles embed.FS

var Migrations = migrate.NewMigrations()

// sqlStep runs the named embedded script.
func sqlStep(name string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		script, err := sqlFiles.ReadFile(name)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, string(script))
		return err
	}
}

func dropTable(table string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table)
		return err
	}
}
