package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitmatch/internal/config"
	"fitmatch/internal/domain/entities"
	"fitmatch/internal/repository/memory"
	"fitmatch/internal/routing"
	"fitmatch/internal/simulation"
)

type instantClock struct{}

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type blockedClock struct{}

func (blockedClock) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

type testEnv struct {
	deliveries  *DeliveryService
	tracking    *TrackingService
	couriers    *memory.CourierRepository
	lockManager *memory.LockManager
}

func setupServices(t *testing.T, clock simulation.Clock) *testEnv {
	t.Helper()

	cfg := config.NewDefaultConfig()
	deliveryRepo := memory.NewDeliveryRepository()
	courierRepo := memory.NewCourierRepository()
	trackingRepo := memory.NewTrackingRepository(cfg.Geo.GeohashPrecision)
	lockManager := memory.NewLockManager()

	// No fetcher: every route is the straight-line fallback.
	provider := routing.NewProvider(nil, nil, cfg.Routing.CacheTTL, nil)
	sim := simulation.New(cfg.Simulation.SpeedKmh, cfg.Simulation.UpdateInterval, simulation.WithClock(clock))
	notifier := NewNotificationService(nil)

	tracking := NewTrackingService(provider, sim, trackingRepo, notifier, cfg, nil)
	deliveries := NewDeliveryService(deliveryRepo, courierRepo, lockManager, provider, tracking, notifier, cfg, nil)

	t.Cleanup(func() {
		tracking.Shutdown()
		lockManager.Stop()
	})

	return &testEnv{
		deliveries:  deliveries,
		tracking:    tracking,
		couriers:    courierRepo,
		lockManager: lockManager,
	}
}

func newDeliveryRequest(courierID string) CreateDeliveryRequest {
	return CreateDeliveryRequest{
		CourierID:    courierID,
		CourierStart: entities.NewGeoPoint(4.6000, -74.0800),
		Store:        entities.NewGeoPoint(4.6097, -74.0817),
		Destination:  entities.NewGeoPoint(4.6300, -74.0790),
	}
}

func waitForSnapshot(t *testing.T, ts *TrackingService, deliveryID string, cond func(*entities.TrackingSnapshot) bool) *entities.TrackingSnapshot {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := ts.GetSnapshot(context.Background(), deliveryID)
		if err == nil && cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for snapshot of %s", deliveryID)
	return nil
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDeliveryService_CreateDelivery(t *testing.T) {
	env := setupServices(t, instantClock{})
	ctx := context.Background()

	delivery, err := env.deliveries.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1"))
	if err != nil {
		t.Fatalf("CreateDelivery failed: %v", err)
	}

	if delivery.ID == "" {
		t.Error("Expected delivery ID to be set")
	}
	if delivery.Status != entities.DeliveryStatusPending {
		t.Errorf("Expected status pending, got %s", delivery.Status)
	}
	if delivery.DistanceKm <= 0 {
		t.Error("Expected positive distance")
	}
	if delivery.Fee < config.NewDefaultConfig().Pricing.MinimumFee {
		t.Errorf("Expected at least the minimum fee, got %v", delivery.Fee)
	}

	courier, _ := env.couriers.GetByID(ctx, "courier-1")
	if courier.Status != entities.CourierStatusOnDelivery {
		t.Errorf("Expected courier on_delivery, got %s", courier.Status)
	}

	if env.tracking.IsTracking(delivery.ID) {
		t.Error("Pending deliveries must not be simulated")
	}
}

func TestDeliveryService_CreateDelivery_CourierBusy(t *testing.T) {
	env := setupServices(t, instantClock{})
	ctx := context.Background()

	if _, err := env.deliveries.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1")); err != nil {
		t.Fatalf("CreateDelivery failed: %v", err)
	}

	_, err := env.deliveries.CreateDelivery(ctx, "customer-2", newDeliveryRequest("courier-1"))
	if !errors.Is(err, ErrCourierBusy) {
		t.Errorf("Expected ErrCourierBusy, got %v", err)
	}
}

func TestDeliveryService_CreateDelivery_InvalidLocation(t *testing.T) {
	env := setupServices(t, instantClock{})

	req := newDeliveryRequest("courier-1")
	req.Destination = entities.NewGeoPoint(91, 0)

	_, err := env.deliveries.CreateDelivery(context.Background(), "customer-1", req)
	if !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("Expected ErrInvalidLocation, got %v", err)
	}
}

func TestDeliveryService_FullLifecycle(t *testing.T) {
	env := setupServices(t, instantClock{})
	ctx := context.Background()
	req := newDeliveryRequest("courier-1")

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", req)

	// pending → picking_up: courier drives to the store.
	delivery, err := env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	if err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	if delivery.Status != entities.DeliveryStatusPickingUp {
		t.Fatalf("Expected picking_up, got %s", delivery.Status)
	}
	snap := waitForSnapshot(t, env.tracking, delivery.ID, func(s *entities.TrackingSnapshot) bool {
		return s.Leg == entities.LegToStore && s.Final
	})
	if snap.Position != req.Store || snap.RemainingKm != 0 {
		t.Errorf("Expected final to_store snapshot at the store, got %+v", snap)
	}
	if snap.ETAMinutes != 1 {
		t.Errorf("Expected ETA floored at 1 minute, got %d", snap.ETAMinutes)
	}
	if snap.Geohash == "" {
		t.Error("Expected snapshot geohash")
	}

	// picking_up → in_transit: courier drives to the customer.
	delivery, err = env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	if err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	if delivery.Status != entities.DeliveryStatusInTransit {
		t.Fatalf("Expected in_transit, got %s", delivery.Status)
	}
	if delivery.PickedUpAt.IsZero() {
		t.Error("Expected PickedUpAt to be set")
	}
	snap = waitForSnapshot(t, env.tracking, delivery.ID, func(s *entities.TrackingSnapshot) bool {
		return s.Leg == entities.LegToCustomer && s.Final
	})
	if snap.Position != req.Destination {
		t.Errorf("Expected final snapshot at the destination, got %+v", snap.Position)
	}

	// in_transit → delivered: tracking stops, courier is free.
	delivery, err = env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	if err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	if delivery.Status != entities.DeliveryStatusDelivered {
		t.Fatalf("Expected delivered, got %s", delivery.Status)
	}
	if _, err := env.tracking.GetSnapshot(ctx, delivery.ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound after delivery, got %v", err)
	}
	courier, _ := env.couriers.GetByID(ctx, "courier-1")
	if !courier.IsAvailable() {
		t.Error("Expected courier to be available after delivery")
	}

	_, err = env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on delivered, got %v", err)
	}
}

func TestDeliveryService_CompleteStep_Errors(t *testing.T) {
	env := setupServices(t, blockedClock{})
	ctx := context.Background()

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1"))

	if _, err := env.deliveries.CompleteStep(ctx, "courier-2", delivery.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
	if _, err := env.deliveries.CompleteStep(ctx, "courier-1", "missing"); !errors.Is(err, ErrDeliveryNotFound) {
		t.Errorf("Expected ErrDeliveryNotFound, got %v", err)
	}

	token, _, _ := env.lockManager.AcquireLock(ctx, "delivery:"+delivery.ID, time.Minute)
	if _, err := env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID); !errors.Is(err, ErrStepInProgress) {
		t.Errorf("Expected ErrStepInProgress, got %v", err)
	}
	env.lockManager.ReleaseLock(ctx, "delivery:"+delivery.ID, token)

	if _, err := env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID); err != nil {
		t.Errorf("Expected step to succeed after lock release, got %v", err)
	}
}

func TestDeliveryService_CompleteStepRestartsSimulation(t *testing.T) {
	env := setupServices(t, blockedClock{})
	ctx := context.Background()
	req := newDeliveryRequest("courier-1")

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", req)
	env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)

	// The blocked clock holds the run on its first tick.
	snap := waitForSnapshot(t, env.tracking, delivery.ID, func(s *entities.TrackingSnapshot) bool {
		return s.Leg == entities.LegToStore
	})
	if snap.Position != req.CourierStart {
		t.Errorf("Expected first tick at courier start, got %+v", snap.Position)
	}
	if !env.tracking.IsTracking(delivery.ID) {
		t.Fatal("Expected an active simulation")
	}

	env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)

	snap = waitForSnapshot(t, env.tracking, delivery.ID, func(s *entities.TrackingSnapshot) bool {
		return s.Leg == entities.LegToCustomer
	})
	if snap.Position != req.Store {
		t.Errorf("Expected new leg to start at the store, got %+v", snap.Position)
	}
	if !env.tracking.IsTracking(delivery.ID) {
		t.Error("Expected the new leg to be simulated")
	}
}

func TestDeliveryService_Cancel(t *testing.T) {
	env := setupServices(t, blockedClock{})
	ctx := context.Background()

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1"))
	env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	waitFor(t, func() bool { return env.tracking.IsTracking(delivery.ID) }, "Expected simulation to start")

	updates, unsubscribe := env.tracking.Subscribe(delivery.ID)
	defer unsubscribe()

	_, err := env.deliveries.Cancel(ctx, entities.Actor{ID: "customer-2", Role: entities.RoleCustomer}, delivery.ID)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for another customer, got %v", err)
	}

	cancelled, err := env.deliveries.Cancel(ctx, entities.Actor{ID: "customer-1", Role: entities.RoleCustomer}, delivery.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != entities.DeliveryStatusCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt.IsZero() {
		t.Error("Expected CancelledAt to be set")
	}
	if env.tracking.IsTracking(delivery.ID) {
		t.Error("Expected simulation to stop on cancel")
	}

	courier, _ := env.couriers.GetByID(ctx, "courier-1")
	if !courier.IsAvailable() {
		t.Error("Expected courier to be available after cancel")
	}

	for range updates {
	}

	_, err = env.deliveries.Cancel(ctx, entities.Actor{ID: "courier-1", Role: entities.RoleCourier}, delivery.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition cancelling twice, got %v", err)
	}
}

func TestDeliveryService_CourierCanCancel(t *testing.T) {
	env := setupServices(t, instantClock{})
	ctx := context.Background()

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1"))

	if _, err := env.deliveries.Cancel(ctx, entities.Actor{ID: "courier-2", Role: entities.RoleCourier}, delivery.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for another courier, got %v", err)
	}
	if _, err := env.deliveries.Cancel(ctx, entities.Actor{ID: "courier-1", Role: entities.RoleCourier}, delivery.ID); err != nil {
		t.Errorf("Expected assigned courier to cancel, got %v", err)
	}

	// The courier can take a new delivery right away.
	if _, err := env.deliveries.CreateDelivery(ctx, "customer-3", newDeliveryRequest("courier-1")); err != nil {
		t.Errorf("Expected courier to be assignable again, got %v", err)
	}
}

func TestTrackingService_SubscribeReceivesUpdates(t *testing.T) {
	env := setupServices(t, instantClock{})
	ctx := context.Background()
	req := newDeliveryRequest("courier-1")

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", req)
	updates, unsubscribe := env.tracking.Subscribe(delivery.ID)
	defer unsubscribe()

	env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)

	select {
	case snap := <-updates:
		if snap.DeliveryID != delivery.ID || snap.Leg != entities.LegToStore {
			t.Errorf("Unexpected snapshot %+v", snap)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a snapshot on the subscription")
	}
}

func TestTrackingService_FindNearby(t *testing.T) {
	env := setupServices(t, blockedClock{})
	ctx := context.Background()
	req := newDeliveryRequest("courier-1")

	delivery, _ := env.deliveries.CreateDelivery(ctx, "customer-1", req)
	env.deliveries.CompleteStep(ctx, "courier-1", delivery.ID)
	waitForSnapshot(t, env.tracking, delivery.ID, func(*entities.TrackingSnapshot) bool { return true })

	nearby, err := env.tracking.FindNearby(ctx, req.CourierStart, 0)
	if err != nil {
		t.Fatalf("FindNearby failed: %v", err)
	}
	if len(nearby) != 1 || nearby[0].DeliveryID != delivery.ID {
		t.Errorf("Expected the delivery near its courier, got %v", nearby)
	}

	far, _ := env.tracking.FindNearby(ctx, entities.NewGeoPoint(40.7128, -74.0060), 5)
	if len(far) != 0 {
		t.Errorf("Expected nothing near New York, got %d", len(far))
	}
}

func TestTrackingService_PreviewRoute(t *testing.T) {
	env := setupServices(t, instantClock{})
	req := newDeliveryRequest("courier-1")

	preview, err := env.tracking.PreviewRoute(context.Background(), req.Store, req.Destination)
	if err != nil {
		t.Fatalf("PreviewRoute failed: %v", err)
	}
	if preview.Source != routing.SourceFallback {
		t.Errorf("Expected fallback source, got %s", preview.Source)
	}
	if len(preview.Route) != 2 {
		t.Errorf("Expected straight-line route, got %d points", len(preview.Route))
	}
	if preview.DistanceKm < 2 || preview.DistanceKm > 3 {
		t.Errorf("Expected ~2.3 km, got %v", preview.DistanceKm)
	}
	if preview.ETAMinutes != 4 {
		t.Errorf("Expected 4 minutes at 30 km/h, got %d", preview.ETAMinutes)
	}
}

var errStoreDown = errors.New("store down")

type failingCourierRepo struct {
	*memory.CourierRepository
}

func (failingCourierRepo) Update(context.Context, *entities.Courier) error {
	return errStoreDown
}

type failingDeliveryRepo struct {
	*memory.DeliveryRepository
}

func (failingDeliveryRepo) Create(context.Context, *entities.Delivery) error {
	return errStoreDown
}

func TestDeliveryService_CreateDelivery_StoreFailures(t *testing.T) {
	cfg := config.NewDefaultConfig()
	provider := routing.NewProvider(nil, nil, cfg.Routing.CacheTTL, nil)
	notifier := NewNotificationService(nil)
	ctx := context.Background()

	t.Run("courier update failure leaves no delivery", func(t *testing.T) {
		deliveryRepo := memory.NewDeliveryRepository()
		lockManager := memory.NewLockManager()
		defer lockManager.Stop()

		svc := NewDeliveryService(deliveryRepo, failingCourierRepo{memory.NewCourierRepository()},
			lockManager, provider, nil, notifier, cfg, nil)

		if _, err := svc.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1")); !errors.Is(err, errStoreDown) {
			t.Fatalf("Expected store error, got %v", err)
		}

		saved, _ := deliveryRepo.GetByCustomerID(ctx, "customer-1")
		if len(saved) != 0 {
			t.Errorf("Expected no orphaned delivery, got %d", len(saved))
		}
	})

	t.Run("delivery save failure frees the courier", func(t *testing.T) {
		courierRepo := memory.NewCourierRepository()
		lockManager := memory.NewLockManager()
		defer lockManager.Stop()

		svc := NewDeliveryService(failingDeliveryRepo{memory.NewDeliveryRepository()}, courierRepo,
			lockManager, provider, nil, notifier, cfg, nil)

		if _, err := svc.CreateDelivery(ctx, "customer-1", newDeliveryRequest("courier-1")); !errors.Is(err, errStoreDown) {
			t.Fatalf("Expected store error, got %v", err)
		}

		courier, err := courierRepo.GetByID(ctx, "courier-1")
		if err != nil {
			t.Fatalf("Expected courier to be registered, got %v", err)
		}
		if !courier.IsAvailable() {
			t.Errorf("Expected courier to be available again, got %s", courier.Status)
		}
	})
}
