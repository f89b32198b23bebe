package memory

import (
	"context"
	"errors"
	"sync"

	"fitmatch/internal/domain/entities"
)

var ErrCourierNotFound = errors.New("courier not found")

type CourierRepository struct {
	mu       sync.RWMutex
	couriers map[string]*entities.Courier
}

func NewCourierRepository() *CourierRepository {
	return &CourierRepository{
		couriers: make(map[string]*entities.Courier),
	}
}

func (r *CourierRepository) GetByID(ctx context.Context, id string) (*entities.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	courier, exists := r.couriers[id]
	if !exists {
		return nil, ErrCourierNotFound
	}
	cp := *courier
	return &cp, nil
}

func (r *CourierRepository) Update(ctx context.Context, courier *entities.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.couriers[courier.ID]; !exists {
		return ErrCourierNotFound
	}
	cp := *courier
	r.couriers[courier.ID] = &cp
	return nil
}

func (r *CourierRepository) SetStatus(ctx context.Context, id string, status entities.CourierStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	courier, exists := r.couriers[id]
	if !exists {
		return ErrCourierNotFound
	}
	courier.SetStatus(status)
	return nil
}

// GetOrCreate returns the courier, registering an available one on first use.
func (r *CourierRepository) GetOrCreate(ctx context.Context, id string) (*entities.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	courier, exists := r.couriers[id]
	if !exists {
		courier = entities.NewCourier(id)
		r.couriers[id] = courier
	}
	cp := *courier
	return &cp, nil
}
