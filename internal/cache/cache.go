package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/model"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// BarCache stores bar series keyed by ticker and date window.
type BarCache interface {
	Get(ctx context.Context, key string) ([]model.OHLCV, error)
	Set(ctx context.Context, key string, bars []model.OHLCV, ttl time.Duration) error
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Backend    string // memory, sqlite, redis or none
	SQLitePath string
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	MaxEntries int
}

// New builds the configured backend.
func New(cfg Config, log zerolog.Logger) (BarCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return NewNoopCache(), nil
	case "memory":
		return NewMemoryCache(cfg.MaxEntries), nil
	case "sqlite":
		return NewSQLiteCache(cfg.SQLitePath, log)
	case "redis":
		return NewRedisCache(RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Purger is implemented by backends that keep expired entries until they
// are explicitly removed.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Purge removes expired entries when the backend needs it. Backends that
// expire on their own report zero.
func Purge(ctx context.Context, c BarCache) (int64, error) {
	p, ok := c.(Purger)
	if !ok {
		return 0, nil
	}
	return p.Purge(ctx)
}

// Key builds the cache key for a ticker and date window.
func Key(ticker, from, to string) string {
	return "bars:" + ticker + ":" + from + ":" + to
}

func encode(bars []model.OHLCV) ([]byte, error) {
	return json.Marshal(bars)
}

func decode(b []byte) ([]model.OHLCV, error) {
	var bars []model.OHLCV
	if err := json.Unmarshal(b, &bars); err != nil {
		return nil, fmt.Errorf("decode cached bars: %w", err)
	}
	return bars, nil
}
