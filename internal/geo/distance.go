// Package geo implements the geometry used by route simulation: great-circle
// distance, straight-line interpolation between two points, and a geohash
// backed spatial index of live courier positions.
//
// Go Learning Note — Pure Functions:
// Distance, Interpolate and RouteLength take values and return values. They
// hold no state, never fail and are safe to call from any goroutine. Keeping
// the numeric core free of side effects makes it trivially testable and lets
// the simulator stay focused on timing and cancellation.
package geo

import (
	"math"

	"fitmatch/internal/domain/entities"
)

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between a and b using
// the Haversine formula. It is symmetric and returns 0 for identical points.
func Distance(a, b entities.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// DistanceKm is Distance expressed in kilometers.
func DistanceKm(a, b entities.GeoPoint) float64 {
	return Distance(a, b) / 1000
}

// Interpolate returns the point at fraction along the straight line from
// start to end, interpolating latitude and longitude independently. This is
// a planar approximation, good enough for the closely spaced points of a
// routed polyline. Fractions outside [0,1] extrapolate; there is no clamping.
func Interpolate(start, end entities.GeoPoint, fraction float64) entities.GeoPoint {
	return entities.GeoPoint{
		Latitude:  start.Latitude + (end.Latitude-start.Latitude)*fraction,
		Longitude: start.Longitude + (end.Longitude-start.Longitude)*fraction,
	}
}

// SegmentLengths returns the length in meters of every consecutive segment
// of route. A route with fewer than two points has no segments.
func SegmentLengths(route entities.Route) []float64 {
	if len(route) < 2 {
		return nil
	}
	lengths := make([]float64, len(route)-1)
	for i := 0; i < len(route)-1; i++ {
		lengths[i] = Distance(route[i], route[i+1])
	}
	return lengths
}

// RouteLength returns the total length of route in meters.
func RouteLength(route entities.Route) float64 {
	total := 0.0
	for _, l := range SegmentLengths(route) {
		total += l
	}
	return total
}
