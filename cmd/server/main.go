package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fitmatch/internal/api"
	"fitmatch/internal/api/handlers"
	"fitmatch/internal/config"
	"fitmatch/internal/observability"
	"fitmatch/internal/repository"
	"fitmatch/internal/repository/memory"
	"fitmatch/internal/repository/redis"
	"fitmatch/internal/routing"
	"fitmatch/internal/services"
	"fitmatch/internal/simulation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Repositories
	deliveryRepo := memory.NewDeliveryRepository()
	courierRepo := memory.NewCourierRepository()
	trackingRepo := memory.NewTrackingRepository(cfg.Geo.GeohashPrecision)

	var (
		routeCache  repository.RouteCache
		lockManager repository.LockManager
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()

		routeCache = redis.NewRouteCache(client)
		lockManager = redis.NewLockManager(client)
		logger.Info("using redis for route cache and locks", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memCache := memory.NewRouteCache()
		defer memCache.Stop()
		memLocks := memory.NewLockManager()
		defer memLocks.Stop()

		routeCache = memCache
		lockManager = memLocks
	}

	// Routing and simulation
	osrm := routing.NewOSRMClient(cfg.Routing.OSRMBaseURL, cfg.Routing.Timeout)
	provider := routing.NewProvider(osrm, routeCache, cfg.Routing.CacheTTL, logger.Named("routing"))
	simulator := simulation.New(
		cfg.Simulation.SpeedKmh,
		cfg.Simulation.UpdateInterval,
		simulation.WithLogger(logger.Named("simulation")),
	)

	// Services
	notificationService := services.NewNotificationService(logger)
	trackingService := services.NewTrackingService(provider, simulator, trackingRepo, notificationService, cfg, logger)
	deliveryService := services.NewDeliveryService(
		deliveryRepo,
		courierRepo,
		lockManager,
		provider,
		trackingService,
		notificationService,
		cfg,
		logger,
	)

	// Router
	router := api.NewRouter(api.RouterConfig{
		DeliveryHandler: handlers.NewDeliveryHandler(deliveryService),
		TrackingHandler: handlers.NewTrackingHandler(deliveryService, trackingService, logger),
		RouteHandler:    handlers.NewRouteHandler(trackingService),
		Logger:          logger,
		Environment:     cfg.Server.Environment,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.Float64("speed_kmh", cfg.Simulation.SpeedKmh),
			zap.Duration("update_interval", cfg.Simulation.UpdateInterval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	// Stops every running leg and closes WebSocket subscribers.
	trackingService.Shutdown()

	logger.Info("server stopped")
}
