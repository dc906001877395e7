package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/ironworks-mfg/taskcore/internal/storage/sqlite/migrations"
)

// Migration is one named, idempotent schema change.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList runs in order against every database, new or old.
// All entries are idempotent, so replaying the whole list against an
// already-migrated database is always safe.
var migrationsList = []Migration{
	{"due_at_column", migrations.MigrateDueAtColumn},
	{"transition_seq_column", migrations.MigrateTransitionSeqColumn},
}

// runMigrations applies the base schema outside any explicit
// transaction, then runs every migration inside a single exclusive
// transaction, so a concurrently-opening process either sees every
// migration applied or blocks until this one finishes.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying base schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquiring exclusive migration lock: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	committed = true
	return nil
}
