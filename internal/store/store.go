package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/guggeis/chatrelay/internal/config"
)

const (
	DriverLibsql = "libsql"
	DriverMemory = "memory"
)

// KV is a key-value store with per-key expiry.
type KV interface {
	// Get returns the live value for key; ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key. A ttl <= 0 means the entry never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Backend is a KV store plus the administrative surface used by the CLI and
// health checks.
type Backend interface {
	KV
	List(ctx context.Context, q KeyQuery) ([]Entry, error)
	Count(ctx context.Context, q KeyQuery) (int, error)
	Delete(ctx context.Context, q KeyQuery) (int64, error)
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// Entry is a live key with its raw value.
type Entry struct {
	Key       string     `json:"key"`
	Value     []byte     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store is the libsql/Turso-backed KV.
type Store struct {
	DB     *sql.DB
	Clock  func() time.Time
	driver string
}

// Open initializes a store backend using the provided configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = DriverLibsql
	}

	if ctx == nil {
		ctx = context.Background()
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverLibsql:
		dsn, err := buildLibsqlDSN(cfg)
		if err != nil {
			return nil, err
		}

		db, err := sql.Open(DriverLibsql, dsn)
		if err != nil {
			return nil, fmt.Errorf("open libsql store: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping libsql store: %w", err)
		}

		s := &Store{DB: db, driver: driver}
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// buildLibsqlDSN turns the store config into a go-libsql DSN. A remote URL
// wins over a local path; plain paths get a file: prefix and their parent
// directory is created.
func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if remote := strings.TrimSpace(cfg.URL); remote != "" {
		return withAuthToken(remote, cfg.AuthToken)
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == ":memory:", strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		local, err := localPath(path)
		if err != nil {
			return "", err
		}
		return path, ensureParentDir(local)
	default:
		if err := ensureParentDir(path); err != nil {
			return "", err
		}
		return "file:" + filepath.Clean(path), nil
	}
}

func withAuthToken(dsn string, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return dsn, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// localPath returns the filesystem part of a file: DSN.
func localPath(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return strings.TrimPrefix(p, "//"), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
