package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SummaryKey is the cache key for a finished summary artifact. Artifacts are
// immutable once written, so cached copies never need invalidation on update.
func SummaryKey(summaryID string) string {
	return "summary:" + summaryID
}
