package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"BreakoutScanner/internal/model"
)

// SQLiteCache persists fetched bar series across process restarts.
type SQLiteCache struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
func NewSQLiteCache(dbPath string, log zerolog.Logger) (*SQLiteCache, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite cache: empty path")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets several scanner processes share one cache file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db, log: log.With().Str("component", "sqlite_cache").Logger(), now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Keys carry the date window, so stale rows never get overwritten.
	n, err := c.Purge(context.Background())
	if err != nil {
		c.log.Warn().Err(err).Msg("purge expired bars")
	}

	c.log.Info().Str("path", dbPath).Int64("purged", n).Msg("sqlite cache opened")
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bar_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bar_cache_exp ON bar_cache(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]model.OHLCV, error) {
	var payload []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM bar_cache WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query bar cache: %w", err)
	}
	if expiresAt > 0 && c.now().Unix() >= expiresAt {
		return nil, ErrMiss
	}
	return decode(payload)
}

func (c *SQLiteCache) Set(ctx context.Context, key string, bars []model.OHLCV, ttl time.Duration) error {
	payload, err := encode(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}
	now := c.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx, `INSERT INTO bar_cache (key, payload, expires_at, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
			expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		key, payload, expiresAt, now.Unix(),
	)
	return err
}

// Purge deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM bar_cache WHERE expires_at > 0 AND expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Close() error {
	c.log.Info().Msg("closing sqlite cache")
	return c.db.Close()
}
