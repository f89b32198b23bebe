// Command routesim animates the routes listed in a YAML scenario file and
// logs every position update. It is the headless counterpart of the
// server's tracking endpoints:
//
//	routesim -config scenarios.yaml
//
// All scenarios run concurrently; SIGINT or SIGTERM stops them.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fitmatch/internal/config"
	"fitmatch/internal/geo"
	"fitmatch/internal/observability"
	"fitmatch/internal/repository/memory"
	"fitmatch/internal/routing"
	"fitmatch/internal/simulation"
	"fitmatch/pkg/utils"
)

func main() {
	configPath := flag.String("config", "scenarios.yaml", "path to the YAML scenario file")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	logFormat := flag.String("log-format", "console", "json or console")
	flag.Parse()

	logger, err := observability.NewLogger(*logLevel, *logFormat)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	file, err := config.LoadScenarios(*configPath)
	if err != nil {
		logger.Fatal("failed to load scenarios", zap.String("path", *configPath), zap.Error(err))
	}
	if len(file.Scenarios) == 0 {
		logger.Warn("no scenarios to run", zap.String("path", *configPath))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := memory.NewRouteCache()
	defer cache.Stop()
	provider := routing.NewProvider(
		routing.NewOSRMClient(file.OSRM.BaseURL, file.OSRM.Timeout),
		cache,
		config.NewDefaultConfig().Routing.CacheTTL,
		logger.Named("routing"),
	)

	runs := simulation.NewRuns()
	defer runs.Shutdown()

	handles := make([]*simulation.Handle, 0, len(file.Scenarios))
	for _, sc := range file.Scenarios {
		handle, err := startScenario(ctx, runs, provider, sc, logger)
		if err != nil {
			logger.Error("skipping scenario", zap.String("id", sc.ID), zap.Error(err))
			continue
		}
		handles = append(handles, handle)
	}

	for _, h := range handles {
		<-h.Done()
	}

	if ctx.Err() != nil {
		logger.Info("simulations cancelled")
		return
	}
	logger.Info("all simulations finished", zap.Int("count", len(handles)))
}

func startScenario(ctx context.Context, runs *simulation.Runs, provider *routing.Provider, sc config.Scenario, logger *zap.Logger) (*simulation.Handle, error) {
	from, err := routing.ParseCoord(sc.Source)
	if err != nil {
		return nil, err
	}
	to, err := routing.ParseCoord(sc.Target)
	if err != nil {
		return nil, err
	}

	routeLog := logger.With(zap.String("route", sc.ID))
	sim := simulation.New(sc.SpeedKmh, sc.Interval, simulation.WithLogger(routeLog))

	return runs.Replace(ctx, sc.ID, func(ctx context.Context) {
		route, source := provider.Route(ctx, from, to)
		routeLog.Info("route ready",
			zap.String("source", string(source)),
			zap.Int("points", len(route)),
			zap.Float64("distance_km", geo.RouteLength(route)/1000),
			zap.Float64("speed_kmh", sc.SpeedKmh),
			zap.Duration("interval", sc.Interval),
		)

		err := sim.Run(ctx, route, func(u simulation.Update) {
			routeLog.Info("position",
				zap.Float64("lat", u.Position.Latitude),
				zap.Float64("lng", u.Position.Longitude),
				zap.Float64("remaining_km", u.RemainingKm),
				zap.Int("eta_minutes", utils.ETAMinutes(u.RemainingKm, sc.SpeedKmh)),
				zap.String("geohash", geo.Encode(u.Position.Latitude, u.Position.Longitude, 0)),
				zap.Bool("final", u.Final),
			)
		})
		if err != nil {
			routeLog.Info("simulation stopped", zap.Error(err))
			return
		}
		routeLog.Info("arrived")
	}), nil
}
