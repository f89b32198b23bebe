// Package simulation animates a courier along a routed polyline.
//
// A Simulator walks a route segment by segment, emitting an interpolated
// position and the remaining distance once per tick. Runs registers at most
// one live simulation per delivery and replaces it on demand.
//
// Go Learning Note — Callbacks and Channels:
// Run takes an onUpdate callback and blocks until the route is finished or
// ctx is cancelled. Stream wraps the same loop in a goroutine and hands the
// updates out on a channel that is closed when the run ends, so callers can
// simply `for u := range sim.Stream(ctx, route)`.
package simulation

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/geo"
)

// Update is one tick of a simulation run.
type Update struct {
	Position    entities.GeoPoint `json:"position"`
	RemainingKm float64           `json:"remaining_km"`
	Segment     int               `json:"segment"`
	Step        int               `json:"step"`
	Final       bool              `json:"final"`
}

type Option func(*Simulator)

// WithClock replaces the wall clock used between ticks.
func WithClock(c Clock) Option {
	return func(s *Simulator) {
		s.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// Simulator moves at a constant speed and emits an update every interval.
// It holds no per-run state and can drive any number of runs concurrently.
type Simulator struct {
	speedKmh float64
	interval time.Duration
	clock    Clock
	logger   *zap.Logger
}

func New(speedKmh float64, interval time.Duration, opts ...Option) *Simulator {
	s := &Simulator{
		speedKmh: speedKmh,
		interval: interval,
		clock:    RealClock(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) SpeedKmh() float64 {
	return s.speedKmh
}

func (s *Simulator) Interval() time.Duration {
	return s.interval
}

// Run drives route from start to end, calling onUpdate once per tick.
//
// Each segment is split into max(1, floor(length / distancePerInterval))
// steps and emitted at fractions 0..steps inclusive, so every segment
// boundary lands on a tick and is emitted twice: once as the end of a
// segment and once as the start of the next. The tick between them is not
// stretched to keep the speed constant. A final update at the last route
// point with zero remaining distance closes the run.
//
// Routes with fewer than two points, and a non-positive speed or interval,
// produce no updates. Run returns ctx.Err() if it was cancelled and nil
// once the final update was emitted.
func (s *Simulator) Run(ctx context.Context, route entities.Route, onUpdate func(Update)) error {
	if len(route) < 2 {
		return nil
	}
	if s.speedKmh <= 0 || s.interval <= 0 {
		s.logger.Warn("simulation skipped",
			zap.Float64("speed_kmh", s.speedKmh),
			zap.Duration("interval", s.interval),
		)
		return nil
	}

	segments := geo.SegmentLengths(route)

	// after[i] is the length of segments i.. to the end of the route.
	after := make([]float64, len(segments)+1)
	for i := len(segments) - 1; i >= 0; i-- {
		after[i] = segments[i] + after[i+1]
	}

	distancePerInterval := s.speedKmh / 3.6 * s.interval.Seconds()

	s.logger.Debug("simulation started",
		zap.Int("points", len(route)),
		zap.Float64("total_km", after[0]/1000),
		zap.Float64("step_m", distancePerInterval),
	)

	lastStep := 0
	for i, length := range segments {
		steps := int(math.Floor(length / distancePerInterval))
		if steps < 1 {
			steps = 1
		}

		for step := 0; step <= steps; step++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			fraction := float64(step) / float64(steps)
			onUpdate(Update{
				Position:    geo.Interpolate(route[i], route[i+1], fraction),
				RemainingKm: (length*(1-fraction) + after[i+1]) / 1000,
				Segment:     i,
				Step:        step,
			})

			if err := s.wait(ctx); err != nil {
				return err
			}
		}
		lastStep = steps
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	onUpdate(Update{
		Position:    route.Last(),
		RemainingKm: 0,
		Segment:     len(segments) - 1,
		Step:        lastStep,
		Final:       true,
	})

	s.logger.Debug("simulation finished", zap.Int("points", len(route)))
	return nil
}

// Stream runs the simulation in its own goroutine and delivers the updates
// on the returned channel, which is closed when the run completes or ctx is
// cancelled. Every call starts a fresh run.
func (s *Simulator) Stream(ctx context.Context, route entities.Route) <-chan Update {
	out := make(chan Update)

	go func() {
		defer close(out)
		_ = s.Run(ctx, route, func(u Update) {
			select {
			case out <- u:
			case <-ctx.Done():
			}
		})
	}()

	return out
}

func (s *Simulator) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.interval):
		return nil
	}
}
