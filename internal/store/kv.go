package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Get returns the stored value for key if it has not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.DB == nil {
		return nil, false, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("key is required")
	}

	var value []byte
	row := s.DB.QueryRowContext(ctx, `
		SELECT value
		FROM kv_entries
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.now().UnixMilli())

	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch key: %w", err)
	}

	return value, true, nil
}

// Put upserts value under key with the given time-to-live.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key is required")
	}

	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	return nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM kv_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired keys: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired keys: %w", err)
	}
	return affected, nil
}
