package memory

import (
	"context"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/geo"
)

// TrackingRepository keeps the latest snapshot of every tracked delivery.
// Storage is a geo.SpatialIndex: a primary deliveryID lookup plus a geohash
// cell index, so the same structure answers Get and FindNearby.
type TrackingRepository struct {
	index *geo.SpatialIndex
}

func NewTrackingRepository(precision int) *TrackingRepository {
	return &TrackingRepository{
		index: geo.NewSpatialIndex(precision),
	}
}

// Save upserts the snapshot. A copy is stored so later writes by the caller
// don't leak into readers.
func (r *TrackingRepository) Save(ctx context.Context, snapshot *entities.TrackingSnapshot) error {
	cp := *snapshot
	r.index.Update(&cp)
	snapshot.Geohash = cp.Geohash
	return nil
}

// Get returns (nil, nil) when the delivery has no snapshot.
func (r *TrackingRepository) Get(ctx context.Context, deliveryID string) (*entities.TrackingSnapshot, error) {
	snap := r.index.Get(deliveryID)
	if snap == nil {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (r *TrackingRepository) Remove(ctx context.Context, deliveryID string) error {
	r.index.Remove(deliveryID)
	return nil
}

// FindNearby returns snapshots within radiusKm of point, nearest first.
func (r *TrackingRepository) FindNearby(ctx context.Context, point entities.GeoPoint, radiusKm float64) ([]*entities.TrackingSnapshot, error) {
	found := r.index.FindNearby(ctx, point.Latitude, point.Longitude, radiusKm)

	snapshots := make([]*entities.TrackingSnapshot, 0, len(found))
	for _, f := range found {
		cp := *f.Snapshot
		snapshots = append(snapshots, &cp)
	}
	return snapshots, nil
}

// Count returns the number of tracked deliveries.
func (r *TrackingRepository) Count() int {
	return r.index.Count()
}
