// Package sqlite implements internal/storage.Store against a SQLite
// database via the pure-Go ncruces/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ironworks-mfg/taskcore/internal/storage"
)

// Storage is the SQLite-backed implementation of storage.Store.
type Storage struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at dbPath, applies
// the schema and any pending migrations, and returns a ready Storage.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting read/write
// helpers run identically whether or not they are inside WithTx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStorage wraps an execer but is not used: WithTx hands its callback
// a withTxStore (below), which shares the one pinned connection while
// the BEGIN IMMEDIATE transaction is open.
type txStorage struct {
	tx execer
}

func (s *Storage) conn() execer { return s.db }

// WithTx runs fn against a Store bound to one transaction. The
// transaction uses BEGIN IMMEDIATE to acquire the write lock up
// front, matching the teacher's rationale: this serializes concurrent
// writers at transaction start rather than letting them discover a
// conflict only at commit time.
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if _, err := s.db.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = s.db.ExecContext(ctx, "ROLLBACK")
		}
	}()

	txStore := &withTxStore{Storage: s}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// withTxStore delegates every Store method to the same *Storage
// (and therefore the same underlying *sql.DB connection, since
// SetMaxOpenConns(1) pins all operations to one connection) while the
// surrounding WithTx holds an open BEGIN IMMEDIATE transaction.
type withTxStore struct {
	*Storage
}

func (w *withTxStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return fn(ctx, w)
}

var _ storage.Store = (*Storage)(nil)
var _ storage.Store = (*withTxStore)(nil)
