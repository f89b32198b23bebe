package geo

import (
	"context"
	"sort"
	"sync"

	"fitmatch/internal/domain/entities"
)

// SnapshotWithDistance pairs a tracked delivery with its distance in km from a
// search point. Used to return sorted proximity results.
type SnapshotWithDistance struct {
	Snapshot   *entities.TrackingSnapshot `json:"snapshot"`
	DistanceKm float64                    `json:"distance_km"`
}

// SpatialIndex keeps the live position of every simulated courier bucketed
// by geohash cell, so a proximity search only checks the center cell and its
// 8 neighbors instead of every tracked delivery.
//
// Go Learning Note — Secondary Indexes:
// cells maps geohash → deliveryID → snapshot and byDelivery maps
// deliveryID → geohash. The second map makes moves and removals O(1): we know
// which cell to clean up without scanning all of them. Both maps change
// together under the same write lock so they can never disagree.
type SpatialIndex struct {
	mu         sync.RWMutex
	precision  int
	cells      map[string]map[string]*entities.TrackingSnapshot
	byDelivery map[string]string
}

// NewSpatialIndex creates an empty spatial index with the given geohash precision.
func NewSpatialIndex(precision int) *SpatialIndex {
	return &SpatialIndex{
		precision:  precision,
		cells:      make(map[string]map[string]*entities.TrackingSnapshot),
		byDelivery: make(map[string]string),
	}
}

// Precision returns the geohash precision cells are built with.
func (s *SpatialIndex) Precision() int {
	return s.precision
}

// Update stores the snapshot's position, moving the delivery to a new cell if
// it crossed a cell border. The snapshot's Geohash is recomputed at the
// index precision when it is missing or was built with another precision.
func (s *SpatialIndex) Update(snapshot *entities.TrackingSnapshot) *entities.TrackingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snapshot.Geohash) != s.cellPrecision() {
		snapshot.Geohash = Encode(snapshot.Position.Latitude, snapshot.Position.Longitude, s.precision)
	}

	s.removeLocked(snapshot.DeliveryID)

	if _, exists := s.cells[snapshot.Geohash]; !exists {
		s.cells[snapshot.Geohash] = make(map[string]*entities.TrackingSnapshot)
	}
	s.cells[snapshot.Geohash][snapshot.DeliveryID] = snapshot
	s.byDelivery[snapshot.DeliveryID] = snapshot.Geohash

	return snapshot
}

// Remove drops a delivery from the index, e.g. when it is delivered or cancelled.
func (s *SpatialIndex) Remove(deliveryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(deliveryID)
}

func (s *SpatialIndex) removeLocked(deliveryID string) {
	gh, exists := s.byDelivery[deliveryID]
	if !exists {
		return
	}
	if cell, ok := s.cells[gh]; ok {
		delete(cell, deliveryID)
		if len(cell) == 0 {
			delete(s.cells, gh)
		}
	}
	delete(s.byDelivery, deliveryID)
}

// Get returns the indexed snapshot of a delivery, or nil if it is not tracked.
func (s *SpatialIndex) Get(deliveryID string) *entities.TrackingSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gh, exists := s.byDelivery[deliveryID]
	if !exists {
		return nil
	}
	return s.cells[gh][deliveryID]
}

// FindNearby returns tracked deliveries within radiusKm of a point, nearest
// first.
//
// Strategy: coarse filter → fine filter. The 3x3 grid of geohash cells
// around the point limits the candidates, then the exact Haversine distance
// drops anything outside the radius. At precision 6 the grid spans about
// 3.6 km, so larger radii are bounded by the grid.
func (s *SpatialIndex) FindNearby(ctx context.Context, lat, lon float64, radiusKm float64) []SnapshotWithDistance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	center := entities.NewGeoPoint(lat, lon)
	var candidates []SnapshotWithDistance

	for _, gh := range AllNeighbors(Encode(lat, lon, s.precision)) {
		for _, snap := range s.cells[gh] {
			d := DistanceKm(center, snap.Position)
			if d <= radiusKm {
				candidates = append(candidates, SnapshotWithDistance{
					Snapshot:   snap,
					DistanceKm: d,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	return candidates
}

// Count returns the number of tracked deliveries.
func (s *SpatialIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byDelivery)
}

func (s *SpatialIndex) cellPrecision() int {
	switch {
	case s.precision <= 0:
		return defaultPrecision
	case s.precision > maxPrecision:
		return maxPrecision
	}
	return s.precision
}
