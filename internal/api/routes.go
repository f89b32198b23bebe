package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitmatch/internal/api/handlers"
	"fitmatch/internal/api/middleware"
)

type Router struct {
	engine          *gin.Engine
	deliveryHandler *handlers.DeliveryHandler
	trackingHandler *handlers.TrackingHandler
	routeHandler    *handlers.RouteHandler
	logger          *zap.Logger
}

type RouterConfig struct {
	DeliveryHandler *handlers.DeliveryHandler
	TrackingHandler *handlers.TrackingHandler
	RouteHandler    *handlers.RouteHandler
	Logger          *zap.Logger
	Environment     string
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := &Router{
		engine:          gin.New(),
		deliveryHandler: cfg.DeliveryHandler,
		trackingHandler: cfg.TrackingHandler,
		routeHandler:    cfg.RouteHandler,
		logger:          cfg.Logger,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.logger))
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public: previews touch no delivery.
	r.engine.GET("/routes/preview", r.routeHandler.Preview)

	deliveries := r.engine.Group("/deliveries")
	deliveries.Use(middleware.MockAuth())
	{
		deliveries.POST("", middleware.RequireCustomer(), r.deliveryHandler.Create)
		deliveries.GET("/nearby", r.trackingHandler.Nearby)

		deliveries.GET("/:id", r.deliveryHandler.Get)
		deliveries.POST("/:id/steps/complete", middleware.RequireCourier(), r.deliveryHandler.CompleteStep)
		deliveries.POST("/:id/cancel", r.deliveryHandler.Cancel)

		deliveries.GET("/:id/tracking", r.trackingHandler.Get)
		deliveries.GET("/:id/tracking/ws", r.trackingHandler.Stream)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
