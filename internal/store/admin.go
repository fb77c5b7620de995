package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeyQuery selects keys for administrative operations.
type KeyQuery struct {
	All    bool
	Key    string
	Prefix string
}

func (q KeyQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --client, or --prefix")
}

// Matches reports whether key is selected by the query.
func (q KeyQuery) Matches(key string) bool {
	if q.All {
		return true
	}
	if exact := strings.TrimSpace(q.Key); exact != "" {
		return key == exact
	}
	prefix := strings.TrimSpace(q.Prefix)
	return prefix != "" && strings.HasPrefix(key, prefix)
}

func (q KeyQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if key := strings.TrimSpace(q.Key); key != "" {
		return "AND key = ?", []any{key}, nil
	}
	return "AND key LIKE ? ESCAPE '\\'", []any{escapeLike(strings.TrimSpace(q.Prefix)) + "%"}, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// List returns live entries matching q ordered by key.
func (s *Store) List(ctx context.Context, q KeyQuery) ([]Entry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}
	args = append([]any{s.now().UnixMilli()}, args...)

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT key, value, expires_at
		FROM kv_entries
		WHERE (expires_at IS NULL OR expires_at > ?) %s
		ORDER BY key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []Entry{}
	for rows.Next() {
		var (
			key       string
			value     []byte
			expiresAt sql.NullInt64
		)
		if err := rows.Scan(&key, &value, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}

		entry := Entry{Key: key, Value: value}
		if expiresAt.Valid {
			ts := time.UnixMilli(expiresAt.Int64).UTC()
			entry.ExpiresAt = &ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	return entries, nil
}

// Count returns the number of live entries matching q.
func (s *Store) Count(ctx context.Context, q KeyQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}
	args = append([]any{s.now().UnixMilli()}, args...)

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM kv_entries
		WHERE (expires_at IS NULL OR expires_at > ?) %s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	return count, nil
}

// Delete removes entries matching q, expired or not.
func (s *Store) Delete(ctx context.Context, q KeyQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM kv_entries
		WHERE 1 = 1 %s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	return affected, nil
}
