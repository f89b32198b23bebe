package handlers

import (
	"context"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/services"
)

//go:generate mockgen -source=interfaces.go -destination=../../mocks/handler_mocks.go -package=mocks

type DeliveryService interface {
	CreateDelivery(ctx context.Context, customerID string, req services.CreateDeliveryRequest) (*entities.Delivery, error)
	GetDelivery(ctx context.Context, deliveryID string) (*entities.Delivery, error)
	CompleteStep(ctx context.Context, courierID, deliveryID string) (*entities.Delivery, error)
	Cancel(ctx context.Context, actor entities.Actor, deliveryID string) (*entities.Delivery, error)
}

type TrackingService interface {
	GetSnapshot(ctx context.Context, deliveryID string) (*entities.TrackingSnapshot, error)
	Subscribe(deliveryID string) (<-chan *entities.TrackingSnapshot, func())
	FindNearby(ctx context.Context, point entities.GeoPoint, radiusKm float64) ([]*entities.TrackingSnapshot, error)
	PreviewRoute(ctx context.Context, from, to entities.GeoPoint) (*services.RoutePreview, error)
}
