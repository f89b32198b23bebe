package repository

import (
	"context"
	"errors"
	"time"

	"fitmatch/internal/domain/entities"
)

var ErrCacheMiss = errors.New("route not cached")

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *entities.Delivery) error
	GetByID(ctx context.Context, id string) (*entities.Delivery, error)
	Update(ctx context.Context, delivery *entities.Delivery) error
	Delete(ctx context.Context, id string) error
	GetByCustomerID(ctx context.Context, customerID string) ([]*entities.Delivery, error)
	GetByCourierID(ctx context.Context, courierID string) ([]*entities.Delivery, error)
}

type CourierRepository interface {
	GetOrCreate(ctx context.Context, id string) (*entities.Courier, error)
	GetByID(ctx context.Context, id string) (*entities.Courier, error)
	Update(ctx context.Context, courier *entities.Courier) error
	SetStatus(ctx context.Context, id string, status entities.CourierStatus) error
}

type TrackingRepository interface {
	Save(ctx context.Context, snapshot *entities.TrackingSnapshot) error
	Get(ctx context.Context, deliveryID string) (*entities.TrackingSnapshot, error)
	Remove(ctx context.Context, deliveryID string) error
	FindNearby(ctx context.Context, point entities.GeoPoint, radiusKm float64) ([]*entities.TrackingSnapshot, error)
}

// RouteCache stores fetched routes. Get returns ErrCacheMiss when the key is
// absent or expired.
type RouteCache interface {
	Get(ctx context.Context, key string) (entities.Route, error)
	Set(ctx context.Context, key string, route entities.Route, ttl time.Duration) error
}

// LockManager hands out TTL locks. AcquireLock returns a token identifying
// this holder; ReleaseLock only deletes the key while it still carries that
// token, so a holder whose lock expired cannot free someone else's.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
	IsLocked(ctx context.Context, key string) (bool, error)
}
