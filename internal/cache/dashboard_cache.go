package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fdbank/deposit-service/internal/domain"
)

const dashboardPrefix = "fd:dashboard:"

// DashboardCache stores rendered customer dashboards keyed by user id.
// A nil client disables caching: lookups miss and writes are dropped.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache builds a cache. A zero ttl also disables caching.
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl}
}

// Enabled reports whether entries are actually stored.
func (c *DashboardCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached dashboard and whether it was present.
func (c *DashboardCache) Get(ctx context.Context, userID string) (*domain.Dashboard, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get dashboard: %w", err)
	}

	var dashboard domain.Dashboard
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		// Entries written by an older layout are treated as misses.
		_ = c.client.Del(ctx, key(userID)).Err()
		return nil, false, nil
	}
	return &dashboard, true, nil
}

// Set stores dashboard for the configured ttl.
func (c *DashboardCache) Set(ctx context.Context, userID string, dashboard *domain.Dashboard) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	return c.client.Set(ctx, key(userID), raw, c.ttl).Err()
}

// Invalidate drops the cached dashboard for userID.
func (c *DashboardCache) Invalidate(ctx context.Context, userID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, key(userID)).Err()
}

func key(userID string) string {
	return dashboardPrefix + userID
}
