package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/repository"
)

// Source tells where a route came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceOSRM     Source = "osrm"
	SourceFallback Source = "fallback"
)

// Fetcher is anything that can route between two points. OSRMClient is the
// production implementation.
type Fetcher interface {
	Route(ctx context.Context, from, to entities.GeoPoint) (entities.Route, error)
}

// Provider never fails: upstream errors degrade to a straight line.
type Provider struct {
	fetcher Fetcher
	cache   repository.RouteCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewProvider wires a fetcher and an optional cache (nil disables caching).
func NewProvider(fetcher Fetcher, cache repository.RouteCache, ttl time.Duration, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// Route returns a route from `from` to `to` and where it came from. Fetched
// routes are cached; fallback routes are not, so the next call retries the
// routing service.
func (p *Provider) Route(ctx context.Context, from, to entities.GeoPoint) (entities.Route, Source) {
	key := CacheKey(from, to)

	if p.cache != nil {
		route, err := p.cache.Get(ctx, key)
		switch {
		case err == nil && len(route) >= 2:
			return route, SourceCache
		case err != nil && !errors.Is(err, repository.ErrCacheMiss):
			p.logger.Warn("route cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if p.fetcher != nil {
		route, err := p.fetcher.Route(ctx, from, to)
		if err == nil && len(route) >= 2 {
			if p.cache != nil {
				if err := p.cache.Set(ctx, key, route, p.ttl); err != nil {
					p.logger.Warn("route cache write failed", zap.String("key", key), zap.Error(err))
				}
			}
			return route, SourceOSRM
		}
		if err == nil {
			err = ErrNoRoute
		}
		p.logger.Warn("routing failed, using straight line",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return entities.Route{from, to}, SourceFallback
}

// CacheKey identifies a route by its endpoints rounded to 6 decimals (~0.1 m).
func CacheKey(from, to entities.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f;%.6f,%.6f", from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}
