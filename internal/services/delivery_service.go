package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fitmatch/internal/config"
	"fitmatch/internal/domain/entities"
	"fitmatch/internal/geo"
	"fitmatch/internal/repository"
	"fitmatch/internal/simulation"
	"fitmatch/pkg/utils"
)

var (
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotAuthorized     = errors.New("not authorized to perform this action")
	ErrCourierBusy       = errors.New("courier is already on a delivery")
	ErrStepInProgress    = errors.New("another step is being processed for this delivery")
	ErrInvalidLocation   = errors.New("invalid location")
)

// Tracker is the part of TrackingService the delivery lifecycle drives.
type Tracker interface {
	StartLeg(delivery *entities.Delivery, leg entities.Leg) *simulation.Handle
	Stop(ctx context.Context, deliveryID string) error
}

type CreateDeliveryRequest struct {
	CourierID    string            `json:"courier_id" binding:"required"`
	CourierStart entities.GeoPoint `json:"courier_start"`
	Store        entities.GeoPoint `json:"store"`
	Destination  entities.GeoPoint `json:"destination"`
}

// DeliveryService runs the delivery lifecycle:
//
//	pending → picking_up → in_transit → delivered   (or → cancelled)
//
// Every completed step restarts the courier simulation for the next leg, and
// the terminal states stop it and free the courier.
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	courierRepo  repository.CourierRepository
	locks        repository.LockManager
	provider     RouteProvider
	tracker      Tracker
	notifier     *NotificationService
	calculator   *utils.FeeCalculator
	config       *config.Config
	logger       *zap.Logger
}

func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	courierRepo repository.CourierRepository,
	locks repository.LockManager,
	provider RouteProvider,
	tracker Tracker,
	notifier *NotificationService,
	cfg *config.Config,
	logger *zap.Logger,
) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		courierRepo:  courierRepo,
		locks:        locks,
		provider:     provider,
		tracker:      tracker,
		notifier:     notifier,
		calculator: utils.NewFeeCalculator(
			cfg.Pricing.BaseFee,
			cfg.Pricing.PerKmRate,
			cfg.Pricing.MinimumFee,
			cfg.Simulation.SpeedKmh,
		),
		config: cfg,
		logger: logger.Named("delivery"),
	}
}

// CreateDelivery assigns an available courier to a new pending delivery and
// prices it from the routed store → destination distance.
func (s *DeliveryService) CreateDelivery(ctx context.Context, customerID string, req CreateDeliveryRequest) (*entities.Delivery, error) {
	for _, p := range []entities.GeoPoint{req.CourierStart, req.Store, req.Destination} {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidLocation, p.Latitude, p.Longitude)
		}
	}

	courierKey := "courier:" + req.CourierID
	token, acquired, err := s.locks.AcquireLock(ctx, courierKey, s.config.Delivery.StepLockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking courier: %w", err)
	}
	if !acquired {
		return nil, ErrCourierBusy
	}
	defer s.releaseLock(courierKey, token)

	courier, err := s.courierRepo.GetOrCreate(ctx, req.CourierID)
	if err != nil {
		return nil, fmt.Errorf("loading courier: %w", err)
	}
	if !courier.IsAvailable() {
		return nil, ErrCourierBusy
	}

	route, _ := s.provider.Route(ctx, req.Store, req.Destination)
	distanceKm := geo.RouteLength(route) / 1000
	fee := s.calculator.CalculateFee(distanceKm)

	delivery := entities.NewDelivery(
		utils.GenerateID(),
		customerID,
		req.CourierID,
		req.CourierStart,
		req.Store,
		req.Destination,
		fee.DistanceKm,
		fee.TotalFee,
	)

	// The courier is claimed before the delivery exists so a failed claim
	// leaves nothing behind; a failed save hands the courier back.
	courier.StartDelivery()
	if err := s.courierRepo.Update(ctx, courier); err != nil {
		return nil, fmt.Errorf("updating courier: %w", err)
	}

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		courier.EndDelivery()
		if rerr := s.courierRepo.Update(ctx, courier); rerr != nil {
			s.logger.Error("releasing courier after failed save",
				zap.String("courier_id", courier.ID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("saving delivery: %w", err)
	}

	s.notifier.NotifyCourierAssigned(delivery)
	s.logger.Info("delivery created",
		zap.String("delivery_id", delivery.ID),
		zap.String("customer_id", customerID),
		zap.String("courier_id", req.CourierID),
		zap.Float64("distance_km", delivery.DistanceKm),
		zap.Float64("fee", delivery.Fee),
	)

	return delivery, nil
}

// GetDelivery retrieves a delivery by ID.
func (s *DeliveryService) GetDelivery(ctx context.Context, deliveryID string) (*entities.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, ErrDeliveryNotFound
	}
	return delivery, nil
}

// CompleteStep advances the delivery one step on behalf of its courier and
// restarts the simulation for the leg that begins.
func (s *DeliveryService) CompleteStep(ctx context.Context, courierID, deliveryID string) (*entities.Delivery, error) {
	unlock, err := s.lockDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	delivery, err := s.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.CourierID != courierID {
		return nil, ErrNotAuthorized
	}

	previous := delivery.Status
	status, err := delivery.CompleteStep()
	if err != nil {
		return nil, ErrInvalidTransition
	}

	if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, fmt.Errorf("updating delivery: %w", err)
	}

	switch status {
	case entities.DeliveryStatusPickingUp, entities.DeliveryStatusInTransit:
		if status == entities.DeliveryStatusInTransit {
			s.notifier.NotifyOrderPickedUp(delivery)
		}
		leg, _ := delivery.ActiveLeg()
		s.tracker.StartLeg(delivery, leg)
	case entities.DeliveryStatusDelivered:
		if err := s.finish(ctx, delivery); err != nil {
			return nil, err
		}
		s.notifier.NotifyDelivered(delivery)
	}

	s.logger.Info("step completed",
		zap.String("delivery_id", delivery.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)

	return delivery, nil
}

// Cancel cancels a non-terminal delivery. Only its customer or its courier
// may cancel.
func (s *DeliveryService) Cancel(ctx context.Context, actor entities.Actor, deliveryID string) (*entities.Delivery, error) {
	unlock, err := s.lockDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	delivery, err := s.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !canCancel(actor, delivery) {
		return nil, ErrNotAuthorized
	}

	if err := delivery.Cancel(); err != nil {
		return nil, ErrInvalidTransition
	}
	if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, fmt.Errorf("updating delivery: %w", err)
	}

	if err := s.finish(ctx, delivery); err != nil {
		return nil, err
	}
	s.notifier.NotifyCancelled(delivery, actor)

	return delivery, nil
}

func canCancel(actor entities.Actor, d *entities.Delivery) bool {
	switch actor.Role {
	case entities.RoleCustomer:
		return actor.ID == d.CustomerID
	case entities.RoleCourier:
		return actor.ID == d.CourierID
	}
	return false
}

// finish stops tracking and frees the courier of a terminal delivery.
func (s *DeliveryService) finish(ctx context.Context, delivery *entities.Delivery) error {
	if err := s.tracker.Stop(ctx, delivery.ID); err != nil {
		return fmt.Errorf("stopping tracking: %w", err)
	}

	courier, err := s.courierRepo.GetByID(ctx, delivery.CourierID)
	if err != nil {
		return fmt.Errorf("loading courier: %w", err)
	}
	courier.EndDelivery()
	if err := s.courierRepo.Update(ctx, courier); err != nil {
		return fmt.Errorf("updating courier: %w", err)
	}
	return nil
}

// lockDelivery serializes lifecycle changes of one delivery. A caller that
// loses the race gets ErrStepInProgress instead of waiting.
func (s *DeliveryService) lockDelivery(ctx context.Context, deliveryID string) (func(), error) {
	key := "delivery:" + deliveryID
	token, acquired, err := s.locks.AcquireLock(ctx, key, s.config.Delivery.StepLockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking delivery: %w", err)
	}
	if !acquired {
		return nil, ErrStepInProgress
	}
	return func() { s.releaseLock(key, token) }, nil
}

func (s *DeliveryService) releaseLock(key, token string) {
	if err := s.locks.ReleaseLock(context.Background(), key, token); err != nil {
		s.logger.Warn("releasing lock failed", zap.String("key", key), zap.Error(err))
	}
}
