package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

type sample struct {
	Value int `json:"value"`
}

func TestNoopStatisticsCacheNeverHits(t *testing.T) {
	var c StatisticsCache = NoopStatisticsCache{}
	if err := c.Set(context.Background(), "stats:a", sample{Value: 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got sample
	ok, err := c.Get(context.Background(), "stats:a", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStatisticsCacheIntegration(t *testing.T) {
	addr := os.Getenv("PAINPERDU_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAINPERDU_TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	c := NewRedisStatisticsCache(addr, os.Getenv("PAINPERDU_TEST_REDIS_PASSWORD"), 0)
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	prefix := "painperdu-test:" + time.Now().Format("150405.000000") + ":"
	for i, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, prefix+key, sample{Value: i}, time.Minute); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	var got sample
	ok, err := c.Get(ctx, prefix+"b", &got)
	if err != nil || !ok || got.Value != 1 {
		t.Fatalf("expected hit with value 1, got ok=%v value=%d err=%v", ok, got.Value, err)
	}

	if err := c.DeletePrefix(ctx, prefix); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	ok, err = c.Get(ctx, prefix+"a", &got)
	if err != nil || ok {
		t.Fatalf("expected miss after delete, got ok=%v err=%v", ok, err)
	}
}
