package handlers

import (
	"github.com/gin-gonic/gin"

	"fitmatch/internal/api/middleware"
	"fitmatch/internal/domain/entities"
	"fitmatch/internal/services"
	"fitmatch/pkg/httputil"
)

type DeliveryHandler struct {
	deliveries DeliveryService
}

func NewDeliveryHandler(deliveries DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

// CreateDeliveryRequest uses pointers so a missing point fails binding
// instead of silently becoming (0, 0).
type CreateDeliveryRequest struct {
	CourierID    string             `json:"courier_id" binding:"required"`
	CourierStart *entities.GeoPoint `json:"courier_start" binding:"required"`
	Store        *entities.GeoPoint `json:"store" binding:"required"`
	Destination  *entities.GeoPoint `json:"destination" binding:"required"`
}

// Create handles POST /deliveries
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.ValidationError(c, err)
		return
	}

	customer := middleware.GetActor(c)

	delivery, err := h.deliveries.CreateDelivery(c.Request.Context(), customer.ID, services.CreateDeliveryRequest{
		CourierID:    req.CourierID,
		CourierStart: *req.CourierStart,
		Store:        *req.Store,
		Destination:  *req.Destination,
	})
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	httputil.Created(c, delivery)
}

// Get handles GET /deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	delivery, err := h.deliveries.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	httputil.OK(c, delivery)
}

// CompleteStep handles POST /deliveries/:id/steps/complete
func (h *DeliveryHandler) CompleteStep(c *gin.Context) {
	courier := middleware.GetActor(c)

	delivery, err := h.deliveries.CompleteStep(c.Request.Context(), courier.ID, c.Param("id"))
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	httputil.OK(c, delivery)
}

// Cancel handles POST /deliveries/:id/cancel
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	delivery, err := h.deliveries.Cancel(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	httputil.OK(c, delivery)
}
