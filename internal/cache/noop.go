package cache

import (
	"context"
	"time"

	"BreakoutScanner/internal/model"
)

// NoopCache never stores anything; used when caching is disabled.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Get(_ context.Context, _ string) ([]model.OHLCV, error) { return nil, ErrMiss }
func (n *NoopCache) Set(_ context.Context, _ string, _ []model.OHLCV, _ time.Duration) error {
	return nil
}
func (n *NoopCache) Close() error { return nil }
