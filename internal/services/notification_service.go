package services

import (
	"go.uber.org/zap"

	"fitmatch/internal/domain/entities"
)

// NotificationService tells customers and couriers about delivery milestones.
// Notifications are structured log lines; a push provider would plug in here.
type NotificationService struct {
	logger *zap.Logger
}

func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger.Named("notification")}
}

// NotifyCourierAssigned tells the courier about a new delivery.
func (s *NotificationService) NotifyCourierAssigned(d *entities.Delivery) {
	s.logger.Info("courier assigned",
		zap.String("recipient", d.CourierID),
		zap.String("delivery_id", d.ID),
		zap.Float64("store_lat", d.Store.Latitude),
		zap.Float64("store_lng", d.Store.Longitude),
		zap.Float64("fee", d.Fee),
	)
}

// NotifyCourierArrivedAtStore tells the customer the courier reached the store.
func (s *NotificationService) NotifyCourierArrivedAtStore(d *entities.Delivery) {
	s.logger.Info("courier arrived at store",
		zap.String("recipient", d.CustomerID),
		zap.String("delivery_id", d.ID),
		zap.String("courier_id", d.CourierID),
	)
}

func (s *NotificationService) NotifyOrderPickedUp(d *entities.Delivery) {
	s.logger.Info("order picked up",
		zap.String("recipient", d.CustomerID),
		zap.String("delivery_id", d.ID),
	)
}

// NotifyCourierArriving tells the customer the courier reached the drop-off.
func (s *NotificationService) NotifyCourierArriving(d *entities.Delivery) {
	s.logger.Info("courier arriving",
		zap.String("recipient", d.CustomerID),
		zap.String("delivery_id", d.ID),
		zap.String("courier_id", d.CourierID),
	)
}

func (s *NotificationService) NotifyDelivered(d *entities.Delivery) {
	s.logger.Info("delivery completed",
		zap.String("recipient", d.CustomerID),
		zap.String("delivery_id", d.ID),
		zap.Float64("fee", d.Fee),
	)
}

// NotifyCancelled tells both parties; by is the actor who cancelled.
func (s *NotificationService) NotifyCancelled(d *entities.Delivery, by entities.Actor) {
	s.logger.Info("delivery cancelled",
		zap.Strings("recipients", []string{d.CustomerID, d.CourierID}),
		zap.String("delivery_id", d.ID),
		zap.String("cancelled_by", by.ID),
		zap.String("role", string(by.Role)),
	)
}
