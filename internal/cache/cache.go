package cache

import (
	"context"
	"time"
)

// StatisticsCache stores computed statistics as JSON under string keys.
// Get reports whether dest was filled.
type StatisticsCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

type NoopStatisticsCache struct{}

func (NoopStatisticsCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopStatisticsCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopStatisticsCache) DeletePrefix(_ context.Context, _ string) error {
	return nil
}
