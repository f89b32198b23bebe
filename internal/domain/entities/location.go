package entities

import "time"

// GeoPoint is a latitude/longitude pair in decimal degrees.
//
// Go Learning Note — Value Types vs Reference Types:
// GeoPoint is a small, immutable data holder (two float64s, 16 bytes). It is
// always passed and returned by value, never by pointer. Copying it is as
// cheap as copying a pointer, and it can never be mutated behind the
// caller's back. Routes are plain []GeoPoint slices for the same reason.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewGeoPoint creates a GeoPoint value from latitude and longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{
		Latitude:  lat,
		Longitude: lng,
	}
}

// IsValid reports whether the point lies within the usual coordinate ranges.
// The simulator does not call this; it is enforced at the API boundary.
func (p GeoPoint) IsValid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Route is an ordered polyline from origin to destination.
type Route []GeoPoint

// Last returns the final point of the route. It panics on an empty route.
func (r Route) Last() GeoPoint {
	return r[len(r)-1]
}

// Leg identifies which part of a delivery a simulation run is animating.
type Leg string

const (
	LegToStore    Leg = "to_store"
	LegToCustomer Leg = "to_customer"
)

// TrackingSnapshot is the latest known state of a delivery's simulated courier.
// The Geohash field enables cell lookups in the spatial index without
// re-encoding the position on every query.
type TrackingSnapshot struct {
	DeliveryID  string    `json:"delivery_id"`
	Leg         Leg       `json:"leg"`
	Position    GeoPoint  `json:"position"`
	RemainingKm float64   `json:"remaining_km"`
	ETAMinutes  int       `json:"eta_minutes"`
	Geohash     string    `json:"geohash"`
	Final       bool      `json:"final"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTrackingSnapshot creates a TrackingSnapshot with the current timestamp.
// The geohash parameter should be pre-computed by the geo package.
func NewTrackingSnapshot(deliveryID string, leg Leg, position GeoPoint, remainingKm float64, etaMinutes int, geohash string, final bool) *TrackingSnapshot {
	return &TrackingSnapshot{
		DeliveryID:  deliveryID,
		Leg:         leg,
		Position:    position,
		RemainingKm: remainingKm,
		ETAMinutes:  etaMinutes,
		Geohash:     geohash,
		Final:       final,
		UpdatedAt:   time.Now(),
	}
}
