// Package migrations holds individual schema migration functions.
// Each is idempotent: safe to run against a database that already has
// the migration applied, checked via pragma_table_info rather than a
// separate "migrations applied" bookkeeping table.
package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateDueAtColumn adds the due_at column to deliverables for
// databases created before scheduling support existed.
func MigrateDueAtColumn(db *sql.DB) error {
	exists, err := columnExists(db, "deliverables", "due_at")
	if err != nil {
		return fmt.Errorf("checking due_at column: %w", err)
	}
	if exists {
		return nil
	}
	_, err = db.Exec(`ALTER TABLE deliverables ADD COLUMN due_at TEXT`)
	if err != nil {
		return fmt.Errorf("adding due_at column: %w", err)
	}
	return nil
}

// MigrateTransitionSeqColumn adds a seq column to task_transitions for
// databases created before the column existed, and backfills it with
// each row's per-task position in rowid order. Only rows present at
// migration time get a value: appendTransition does not set seq, and
// listTransitions orders by rowid.
func MigrateTransitionSeqColumn(db *sql.DB) error {
	exists, err := columnExists(db, "task_transitions", "seq")
	if err != nil {
		return fmt.Errorf("checking seq column: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE task_transitions ADD COLUMN seq INTEGER`); err != nil {
		return fmt.Errorf("adding seq column: %w", err)
	}
	_, err = db.Exec(`
		UPDATE task_transitions
		SET seq = (
			SELECT COUNT(*) FROM task_transitions t2
			WHERE t2.task_id = task_transitions.task_id
			AND t2.rowid <= task_transitions.rowid
		)
	`)
	if err != nil {
		return fmt.Errorf("backfilling seq: %w", err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
