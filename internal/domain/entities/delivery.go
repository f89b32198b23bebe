package entities

import (
	"errors"
	"time"
)

// DeliveryStatus represents the current lifecycle state of a delivery.
//
// Go Learning Note — State Machines in Go:
// The delivery lifecycle is a finite state machine expressed as a map of
// valid transitions. Each step the courier completes moves the delivery one
// state forward:
//
//	Pending → PickingUp → InTransit → Delivered
//	   (any non-terminal state can also transition to Cancelled)
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusPickingUp DeliveryStatus = "picking_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid delivery status transition")

var validTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:   {DeliveryStatusPickingUp, DeliveryStatusCancelled},
	DeliveryStatusPickingUp: {DeliveryStatusInTransit, DeliveryStatusCancelled},
	DeliveryStatusInTransit: {DeliveryStatusDelivered, DeliveryStatusCancelled},
	DeliveryStatusDelivered: {},
	DeliveryStatusCancelled: {},
}

// nextStep is the forward edge taken when the courier completes a step.
var nextStep = map[DeliveryStatus]DeliveryStatus{
	DeliveryStatusPending:   DeliveryStatusPickingUp,
	DeliveryStatusPickingUp: DeliveryStatusInTransit,
	DeliveryStatusInTransit: DeliveryStatusDelivered,
}

// Delivery tracks an order from the store to the customer. The courier
// travels CourierStart → Store while picking up and Store → Destination while
// in transit; both legs are animated by the route simulator.
type Delivery struct {
	ID           string         `json:"id"`
	CustomerID   string         `json:"customer_id"`
	CourierID    string         `json:"courier_id"`
	Status       DeliveryStatus `json:"status"`
	CourierStart GeoPoint       `json:"courier_start"`
	Store        GeoPoint       `json:"store"`
	Destination  GeoPoint       `json:"destination"`
	DistanceKm   float64        `json:"distance_km"`
	Fee          float64        `json:"fee"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	PickedUpAt   time.Time      `json:"picked_up_at,omitempty"`
	DeliveredAt  time.Time      `json:"delivered_at,omitempty"`
	CancelledAt  time.Time      `json:"cancelled_at,omitempty"`
}

// NewDelivery creates a Delivery in the Pending state. No simulation runs
// until the courier completes the first step.
func NewDelivery(id, customerID, courierID string, courierStart, store, destination GeoPoint, distanceKm, fee float64) *Delivery {
	now := time.Now()
	return &Delivery{
		ID:           id,
		CustomerID:   customerID,
		CourierID:    courierID,
		Status:       DeliveryStatusPending,
		CourierStart: courierStart,
		Store:        store,
		Destination:  destination,
		DistanceKm:   distanceKm,
		Fee:          fee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanTransitionTo checks if moving to newStatus is a valid state change.
func (d *Delivery) CanTransitionTo(newStatus DeliveryStatus) bool {
	allowed, exists := validTransitions[d.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the delivery to newStatus and records the milestone
// timestamp for it.
func (d *Delivery) TransitionTo(newStatus DeliveryStatus) error {
	if !d.CanTransitionTo(newStatus) {
		return ErrInvalidTransition
	}
	now := time.Now()
	d.Status = newStatus
	d.UpdatedAt = now

	switch newStatus {
	case DeliveryStatusInTransit:
		d.PickedUpAt = now
	case DeliveryStatusDelivered:
		d.DeliveredAt = now
	case DeliveryStatusCancelled:
		d.CancelledAt = now
	}
	return nil
}

// CompleteStep advances the delivery one step along the happy path and
// returns the new status.
func (d *Delivery) CompleteStep() (DeliveryStatus, error) {
	next, ok := nextStep[d.Status]
	if !ok {
		return d.Status, ErrInvalidTransition
	}
	if err := d.TransitionTo(next); err != nil {
		return d.Status, err
	}
	return next, nil
}

// Cancel transitions to Cancelled.
func (d *Delivery) Cancel() error {
	return d.TransitionTo(DeliveryStatusCancelled)
}

// IsTerminal reports whether no further transitions are possible.
func (d *Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusCancelled
}

// ActiveLeg returns the leg the courier is currently travelling, if any.
func (d *Delivery) ActiveLeg() (Leg, bool) {
	switch d.Status {
	case DeliveryStatusPickingUp:
		return LegToStore, true
	case DeliveryStatusInTransit:
		return LegToCustomer, true
	}
	return "", false
}

// LegEndpoints returns the origin and destination of a leg.
func (d *Delivery) LegEndpoints(leg Leg) (from, to GeoPoint) {
	if leg == LegToStore {
		return d.CourierStart, d.Store
	}
	return d.Store, d.Destination
}
