package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/repository"
)

const routeKeyPrefix = "route:"

// RouteCache stores routes as JSON strings with a Redis TTL.
type RouteCache struct {
	client *goredis.Client
}

var _ repository.RouteCache = (*RouteCache)(nil)

func NewRouteCache(client *goredis.Client) *RouteCache {
	return &RouteCache{client: client}
}

func (c *RouteCache) Get(ctx context.Context, key string) (entities.Route, error) {
	data, err := c.client.Get(ctx, routeKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached route: %w", err)
	}

	var route entities.Route
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("decoding cached route: %w", err)
	}
	return route, nil
}

func (c *RouteCache) Set(ctx context.Context, key string, route entities.Route, ttl time.Duration) error {
	data, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("encoding route: %w", err)
	}
	if err := c.client.Set(ctx, routeKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("caching route: %w", err)
	}
	return nil
}
