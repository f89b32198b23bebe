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
	"fitmatch/internal/routing"
	"fitmatch/internal/simulation"
	"fitmatch/pkg/utils"
)

var ErrSnapshotNotFound = errors.New("no tracking data for delivery")

// RouteProvider resolves a route between two points. routing.Provider never
// fails; it reports a straight-line fallback through the Source instead.
type RouteProvider interface {
	Route(ctx context.Context, from, to entities.GeoPoint) (entities.Route, routing.Source)
}

// RoutePreview is a route with its length and the ETA at simulation speed.
type RoutePreview struct {
	Route      entities.Route `json:"route"`
	DistanceKm float64        `json:"distance_km"`
	ETAMinutes int            `json:"eta_minutes"`
	Source     routing.Source `json:"source"`
}

// TrackingService animates the courier of every active delivery and keeps
// the latest position of each one.
//
// Each delivery has at most one simulation run, registered in a
// simulation.Runs under the delivery ID. Runs use the service's own
// context rather than the request that started them, so a leg keeps moving
// after the HTTP response is written and stops on Stop or Shutdown.
//
// Go Learning Note — Service-Lifetime Contexts:
// context.WithCancel(context.Background()) in the constructor gives the
// service a root context whose cancel function is only called from Shutdown.
// Deriving run contexts from it means one call tears down every goroutine
// the service started.
type TrackingService struct {
	provider     RouteProvider
	simulator    *simulation.Simulator
	runs         *simulation.Runs
	trackingRepo repository.TrackingRepository
	broadcaster  *Broadcaster
	notifier     *NotificationService
	config       *config.Config
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTrackingService(
	provider RouteProvider,
	simulator *simulation.Simulator,
	trackingRepo repository.TrackingRepository,
	notifier *NotificationService,
	cfg *config.Config,
	logger *zap.Logger,
) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TrackingService{
		provider:     provider,
		simulator:    simulator,
		runs:         simulation.NewRuns(),
		trackingRepo: trackingRepo,
		broadcaster:  NewBroadcaster(),
		notifier:     notifier,
		config:       cfg,
		logger:       logger.Named("tracking"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// StartLeg fetches the route for leg and starts animating it, replacing any
// run already active for the delivery. The returned handle's Done channel
// closes when the leg finishes or is cancelled.
func (s *TrackingService) StartLeg(delivery *entities.Delivery, leg entities.Leg) *simulation.Handle {
	d := *delivery
	from, to := d.LegEndpoints(leg)

	return s.runs.Replace(s.ctx, d.ID, func(ctx context.Context) {
		route, source := s.provider.Route(ctx, from, to)

		log := s.logger.With(
			zap.String("delivery_id", d.ID),
			zap.String("leg", string(leg)),
		)
		log.Info("leg started",
			zap.String("route_source", string(source)),
			zap.Int("points", len(route)),
			zap.Float64("distance_km", geo.RouteLength(route)/1000),
		)

		err := s.simulator.Run(ctx, route, func(u simulation.Update) {
			s.record(ctx, &d, leg, u)
		})
		if err != nil {
			log.Debug("leg stopped", zap.Error(err))
			return
		}
		log.Info("leg finished")
	})
}

func (s *TrackingService) record(ctx context.Context, d *entities.Delivery, leg entities.Leg, u simulation.Update) {
	snapshot := entities.NewTrackingSnapshot(
		d.ID,
		leg,
		u.Position,
		u.RemainingKm,
		utils.ETAMinutes(u.RemainingKm, s.simulator.SpeedKmh()),
		geo.Encode(u.Position.Latitude, u.Position.Longitude, s.config.Geo.GeohashPrecision),
		u.Final,
	)

	if err := s.trackingRepo.Save(ctx, snapshot); err != nil {
		s.logger.Warn("saving snapshot failed", zap.String("delivery_id", d.ID), zap.Error(err))
	}
	s.broadcaster.Publish(snapshot)

	if u.Final {
		switch leg {
		case entities.LegToStore:
			s.notifier.NotifyCourierArrivedAtStore(d)
		case entities.LegToCustomer:
			s.notifier.NotifyCourierArriving(d)
		}
	}
}

// Stop cancels the delivery's run, waits for it and drops its tracking
// state. Subscribers see their channel closed.
func (s *TrackingService) Stop(ctx context.Context, deliveryID string) error {
	s.runs.Cancel(deliveryID)
	s.broadcaster.Close(deliveryID)
	if err := s.trackingRepo.Remove(ctx, deliveryID); err != nil {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

// IsTracking reports whether a simulation is running for the delivery.
func (s *TrackingService) IsTracking(deliveryID string) bool {
	return s.runs.Active(deliveryID)
}

// GetSnapshot returns the latest snapshot of a delivery.
func (s *TrackingService) GetSnapshot(ctx context.Context, deliveryID string) (*entities.TrackingSnapshot, error) {
	snap, err := s.trackingRepo.Get(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

// Subscribe streams every new snapshot of the delivery until the returned
// function is called or tracking stops.
func (s *TrackingService) Subscribe(deliveryID string) (<-chan *entities.TrackingSnapshot, func()) {
	return s.broadcaster.Subscribe(deliveryID)
}

// FindNearby returns live couriers within radiusKm of point, nearest first.
// A non-positive radius uses the configured default.
func (s *TrackingService) FindNearby(ctx context.Context, point entities.GeoPoint, radiusKm float64) ([]*entities.TrackingSnapshot, error) {
	if radiusKm <= 0 {
		radiusKm = s.config.Geo.NearbyRadiusKm
	}
	return s.trackingRepo.FindNearby(ctx, point, radiusKm)
}

// PreviewRoute resolves a route without simulating it.
func (s *TrackingService) PreviewRoute(ctx context.Context, from, to entities.GeoPoint) (*RoutePreview, error) {
	route, source := s.provider.Route(ctx, from, to)
	distanceKm := geo.RouteLength(route) / 1000

	return &RoutePreview{
		Route:      route,
		DistanceKm: distanceKm,
		ETAMinutes: utils.ETAMinutes(distanceKm, s.simulator.SpeedKmh()),
		Source:     source,
	}, nil
}

// Shutdown stops every run and closes every subscriber.
func (s *TrackingService) Shutdown() {
	s.cancel()
	s.runs.Shutdown()
	s.broadcaster.CloseAll()
}
