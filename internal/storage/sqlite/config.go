package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (w *withTxStore) SetConfig(ctx context.Context, key, value string) error {
	return setConfig(ctx, w.conn(), key, value)
}

func (s *Storage) SetConfig(ctx context.Context, key, value string) error {
	return setConfig(ctx, s.conn(), key, value)
}

func setConfig(ctx context.Context, c execer, key, value string) error {
	_, err := c.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("setting config %s: %w", key, err)
	}
	return nil
}

func (w *withTxStore) GetConfig(ctx context.Context, key string) (string, error) {
	return getConfig(ctx, w.conn(), key)
}

func (s *Storage) GetConfig(ctx context.Context, key string) (string, error) {
	return getConfig(ctx, s.conn(), key)
}

func getConfig(ctx context.Context, c execer, key string) (string, error) {
	var value string
	err := c.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting config %s: %w", key, err)
	}
	return value, nil
}
