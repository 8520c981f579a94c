// Package cache holds the read cache for posted order details. Orders
// are immutable after posting, so cached entries never need invalidation.
package cache

import (
	"context"
	"time"

	"shopledger/internal/domain"
)

type OrderCache interface {
	Get(ctx context.Context, key string) (*domain.OrderDetail, bool, error)
	Set(ctx context.Context, key string, value *domain.OrderDetail, ttl time.Duration) error
}

// NoopOrderCache is used when no redis address is configured.
type NoopOrderCache struct{}

func (NoopOrderCache) Get(ctx context.Context, key string) (*domain.OrderDetail, bool, error) {
	return nil, false, nil
}

func (NoopOrderCache) Set(ctx context.Context, key string, value *domain.OrderDetail, ttl time.Duration) error {
	return nil
}
