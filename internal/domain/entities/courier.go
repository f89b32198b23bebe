// Package entities defines the core domain models for delivery tracking.
// These structs represent the business concepts (Delivery, Courier, GeoPoint,
// TrackingSnapshot) and live in the innermost layer of the architecture; they
// have no dependencies on HTTP, routing services or storage.
package entities

import "time"

// CourierStatus is a typed string enum representing the courier's current state.
type CourierStatus string

const (
	CourierStatusAvailable  CourierStatus = "available"
	CourierStatusOnDelivery CourierStatus = "on_delivery"
	CourierStatusOffline    CourierStatus = "offline"
)

// Courier carries deliveries from a store to a customer. A courier works on at
// most one delivery at a time.
type Courier struct {
	ID        string        `json:"id"`
	Status    CourierStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewCourier creates a Courier that is immediately available. Couriers are
// created lazily the first time a delivery names them.
func NewCourier(id string) *Courier {
	now := time.Now()
	return &Courier{
		ID:        id,
		Status:    CourierStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAvailable checks whether the courier can take a new delivery.
func (c *Courier) IsAvailable() bool {
	return c.Status == CourierStatusAvailable
}

// SetStatus updates the courier's status and records the change timestamp.
func (c *Courier) SetStatus(status CourierStatus) {
	c.Status = status
	c.UpdatedAt = time.Now()
}

// StartDelivery marks the courier as busy.
func (c *Courier) StartDelivery() {
	c.SetStatus(CourierStatusOnDelivery)
}

// EndDelivery frees the courier after a delivery is delivered or cancelled.
func (c *Courier) EndDelivery() {
	c.SetStatus(CourierStatusAvailable)
}
