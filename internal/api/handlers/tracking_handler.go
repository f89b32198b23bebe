package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fitmatch/internal/domain/entities"
	"fitmatch/pkg/httputil"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mock auth has no notion of origins; any page may watch a delivery.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type TrackingHandler struct {
	deliveries DeliveryService
	tracking   TrackingService
	logger     *zap.Logger
}

func NewTrackingHandler(deliveries DeliveryService, tracking TrackingService, logger *zap.Logger) *TrackingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingHandler{
		deliveries: deliveries,
		tracking:   tracking,
		logger:     logger.Named("tracking_ws"),
	}
}

// Get handles GET /deliveries/:id/tracking
func (h *TrackingHandler) Get(c *gin.Context) {
	snapshot, err := h.tracking.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	httputil.OK(c, snapshot)
}

// Nearby handles GET /deliveries/nearby?lat=&lng=&radius_km=
func (h *TrackingHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		httputil.ErrorWithCode(c, http.StatusBadRequest, "validation_error", "lat and lng query parameters are required")
		return
	}

	point := entities.NewGeoPoint(lat, lng)
	if !point.IsValid() {
		httputil.HandleError(c, errInvalidLocation)
		return
	}

	var radiusKm float64
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r < 0 {
			httputil.ErrorWithCode(c, http.StatusBadRequest, "validation_error", "radius_km must be a non-negative number")
			return
		}
		radiusKm = r
	}

	snapshots, err := h.tracking.FindNearby(c.Request.Context(), point, radiusKm)
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}
	if snapshots == nil {
		snapshots = []*entities.TrackingSnapshot{}
	}

	httputil.OK(c, gin.H{"deliveries": snapshots, "count": len(snapshots)})
}

// Stream handles GET /deliveries/:id/tracking/ws. It sends the latest
// snapshot, if any, and then every new one as a JSON text frame. The
// socket is closed normally when tracking of the delivery stops.
func (h *TrackingHandler) Stream(c *gin.Context) {
	deliveryID := c.Param("id")

	// Subscribe before loading the delivery. A delivery reaches its terminal
	// status before its subscribers are closed, so either the status check
	// below sees it or the channel gets closed later.
	updates, unsubscribe := h.tracking.Subscribe(deliveryID)

	delivery, err := h.deliveries.GetDelivery(c.Request.Context(), deliveryID)
	if err != nil {
		unsubscribe()
		httputil.HandleError(c, toAppError(err))
		return
	}
	if delivery.IsTerminal() {
		unsubscribe()
		h.closeFinished(c, deliveryID)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("delivery_id", deliveryID), zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("delivery_id", deliveryID))
	log.Debug("subscriber connected")

	disconnected := make(chan struct{})
	go readPump(conn, disconnected)

	if snapshot, err := h.tracking.GetSnapshot(c.Request.Context(), deliveryID); err == nil {
		if err := writeJSON(conn, snapshot); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				writeClose(conn)
				log.Debug("tracking stopped, closing subscriber")
				return
			}
			if err := writeJSON(conn, snapshot); err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-disconnected:
			log.Debug("subscriber disconnected")
			return
		}
	}
}

// closeFinished upgrades and immediately closes the socket of a delivery
// that was already delivered or cancelled.
func (h *TrackingHandler) closeFinished(c *gin.Context, deliveryID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("delivery_id", deliveryID), zap.Error(err))
		return
	}
	defer conn.Close()

	writeClose(conn)
	h.logger.Debug("delivery already finished, closing subscriber", zap.String("delivery_id", deliveryID))
}

func writeClose(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "tracking stopped"))
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// readPump discards client frames and keeps pong deadlines current. It
// closes disconnected when the client goes away.
func readPump(conn *websocket.Conn, disconnected chan<- struct{}) {
	defer close(disconnected)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
