package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kraken-screener/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	latestScreenKey = "screener:latest"
	latestScreenTTL = 48 * time.Hour
)

// ScreenCache keeps the most recent screen in redis so the HTTP API, bot,
// and dashboards can read it without touching Postgres.
type ScreenCache struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewScreenCache(client *redis.Client, tracer trace.Tracer) *ScreenCache {
	return &ScreenCache{client: client, tracer: tracer}
}

func (c *ScreenCache) SetLatestScreen(ctx context.Context, snap domain.ScreenSnapshot) error {
	_, span := c.tracer.Start(ctx, "screen-cache.set-latest")
	defer span.End()

	if c.client == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal screen snapshot: %w", err)
	}
	return c.client.Set(ctx, latestScreenKey, payload, latestScreenTTL).Err()
}

// GetLatestScreen returns (nil, nil) on a cache miss.
func (c *ScreenCache) GetLatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	_, span := c.tracer.Start(ctx, "screen-cache.get-latest")
	defer span.End()

	if c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, latestScreenKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap domain.ScreenSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal screen snapshot: %w", err)
	}
	return &snap, nil
}
