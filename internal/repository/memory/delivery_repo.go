package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"fitmatch/internal/domain/entities"
)

var ErrDeliveryNotFound = errors.New("delivery not found")

// DeliveryRepository stores deliveries in memory.
//
// Go Learning Note — Copy on the Way In and Out:
// Deliveries are read by HTTP handlers while a step completion mutates them.
// The repository stores its own copy and hands out copies, so a caller
// never shares a *Delivery with another goroutine. Delivery has no slices
// or maps, so `cp := *d` is a complete copy.
type DeliveryRepository struct {
	mu         sync.RWMutex
	deliveries map[string]*entities.Delivery
}

func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{
		deliveries: make(map[string]*entities.Delivery),
	}
}

func (r *DeliveryRepository) Create(ctx context.Context, delivery *entities.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*entities.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivery, exists := r.deliveries[id]
	if !exists {
		return nil, ErrDeliveryNotFound
	}
	cp := *delivery
	return &cp, nil
}

func (r *DeliveryRepository) Update(ctx context.Context, delivery *entities.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deliveries[delivery.ID]; !exists {
		return ErrDeliveryNotFound
	}
	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *DeliveryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deliveries[id]; !exists {
		return ErrDeliveryNotFound
	}
	delete(r.deliveries, id)
	return nil
}

// GetByCustomerID returns a customer's deliveries, newest first.
func (r *DeliveryRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*entities.Delivery, error) {
	return r.filter(func(d *entities.Delivery) bool { return d.CustomerID == customerID }), nil
}

// GetByCourierID returns a courier's deliveries, newest first.
func (r *DeliveryRepository) GetByCourierID(ctx context.Context, courierID string) ([]*entities.Delivery, error) {
	return r.filter(func(d *entities.Delivery) bool { return d.CourierID == courierID }), nil
}

func (r *DeliveryRepository) filter(match func(*entities.Delivery) bool) []*entities.Delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.Delivery
	for _, d := range r.deliveries {
		if match(d) {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
