package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fitmatch/internal/api/handlers"
	"fitmatch/internal/domain/entities"
	"fitmatch/internal/mocks"
	"fitmatch/internal/services"
)

func testSnapshot(remainingKm float64) *entities.TrackingSnapshot {
	return entities.NewTrackingSnapshot("delivery-1", entities.LegToStore,
		entities.NewGeoPoint(4.60, -74.08), remainingKm, 3, "d2g6f3", false)
}

func TestTrackingHandler_Get(t *testing.T) {
	t.Run("returns latest snapshot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(mocks.NewMockDeliveryService(ctrl), trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/:id/tracking", h.Get)

		trackingSvc.EXPECT().GetSnapshot(gomock.Any(), "delivery-1").Return(testSnapshot(1.2), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/delivery-1/tracking", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, 1.2, resp["remaining_km"])
		assert.Equal(t, "to_store", resp["leg"])
	})

	t.Run("404 without tracking data", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(mocks.NewMockDeliveryService(ctrl), trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/:id/tracking", h.Get)

		trackingSvc.EXPECT().GetSnapshot(gomock.Any(), "delivery-1").Return(nil, services.ErrSnapshotNotFound)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/delivery-1/tracking", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTrackingHandler_Nearby(t *testing.T) {
	t.Run("uses query parameters", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(mocks.NewMockDeliveryService(ctrl), trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/nearby", h.Nearby)

		trackingSvc.EXPECT().
			FindNearby(gomock.Any(), entities.NewGeoPoint(4.6, -74.08), 2.5).
			Return([]*entities.TrackingSnapshot{testSnapshot(1)}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/nearby?lat=4.6&lng=-74.08&radius_km=2.5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, float64(1), resp["count"])
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(mocks.NewMockDeliveryService(ctrl), trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/nearby", h.Nearby)

		trackingSvc.EXPECT().FindNearby(gomock.Any(), gomock.Any(), 0.0).Return(nil, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/nearby?lat=4.6&lng=-74.08", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"deliveries":[]`)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, query := range []string{"", "?lat=abc&lng=1", "?lat=95&lng=1", "?lat=1&lng=1&radius_km=-2"} {
			ctrl := gomock.NewController(t)
			h := handlers.NewTrackingHandler(mocks.NewMockDeliveryService(ctrl), mocks.NewMockTrackingService(ctrl), nil)

			router := setupRouter()
			router.GET("/deliveries/nearby", h.Nearby)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/nearby"+query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code, query)
			ctrl.Finish()
		}
	})
}

func TestTrackingHandler_Stream(t *testing.T) {
	t.Run("sends latest then live snapshots and closes when tracking stops", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		deliverySvc := mocks.NewMockDeliveryService(ctrl)
		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(deliverySvc, trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/:id/tracking/ws", h.Stream)

		updates := make(chan *entities.TrackingSnapshot, 1)
		unsubscribed := make(chan struct{})

		deliverySvc.EXPECT().GetDelivery(gomock.Any(), "delivery-1").Return(testDelivery(), nil)
		trackingSvc.EXPECT().Subscribe("delivery-1").
			Return((<-chan *entities.TrackingSnapshot)(updates), func() { close(unsubscribed) })
		trackingSvc.EXPECT().GetSnapshot(gomock.Any(), "delivery-1").Return(testSnapshot(2), nil)

		server := httptest.NewServer(router)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/deliveries/delivery-1/tracking/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var first entities.TrackingSnapshot
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, 2.0, first.RemainingKm)

		updates <- testSnapshot(1)
		var second entities.TrackingSnapshot
		require.NoError(t, conn.ReadJSON(&second))
		assert.Equal(t, 1.0, second.RemainingKm)

		close(updates)
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

		select {
		case <-unsubscribed:
		case <-time.After(2 * time.Second):
			t.Fatal("expected handler to unsubscribe")
		}
	})

	t.Run("unknown delivery is rejected before upgrade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		deliverySvc := mocks.NewMockDeliveryService(ctrl)
		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(deliverySvc, trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/:id/tracking/ws", h.Stream)

		unsubscribed := false
		trackingSvc.EXPECT().Subscribe("missing").
			Return((<-chan *entities.TrackingSnapshot)(make(chan *entities.TrackingSnapshot)), func() { unsubscribed = true })
		deliverySvc.EXPECT().GetDelivery(gomock.Any(), "missing").Return(nil, services.ErrDeliveryNotFound)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/missing/tracking/ws", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.True(t, unsubscribed)
	})

	t.Run("finished delivery is closed right after upgrade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		deliverySvc := mocks.NewMockDeliveryService(ctrl)
		trackingSvc := mocks.NewMockTrackingService(ctrl)
		h := handlers.NewTrackingHandler(deliverySvc, trackingSvc, nil)

		router := setupRouter()
		router.GET("/deliveries/:id/tracking/ws", h.Stream)

		cancelled := testDelivery()
		require.NoError(t, cancelled.Cancel())

		unsubscribed := make(chan struct{})
		trackingSvc.EXPECT().Subscribe("delivery-1").
			Return((<-chan *entities.TrackingSnapshot)(make(chan *entities.TrackingSnapshot)), func() { close(unsubscribed) })
		deliverySvc.EXPECT().GetDelivery(gomock.Any(), "delivery-1").Return(cancelled, nil)

		server := httptest.NewServer(router)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/deliveries/delivery-1/tracking/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

		select {
		case <-unsubscribed:
		case <-time.After(2 * time.Second):
			t.Fatal("expected handler to drop the subscription")
		}
	})
}
