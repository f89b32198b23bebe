package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"fitmatch/internal/routing"
	"fitmatch/pkg/apperror"
	"fitmatch/pkg/httputil"
)

type RouteHandler struct {
	tracking TrackingService
}

func NewRouteHandler(tracking TrackingService) *RouteHandler {
	return &RouteHandler{tracking: tracking}
}

// Preview handles GET /routes/preview?from=lat,lon&to=lat,lon and answers
// with a GeoJSON Feature whose geometry is the route LineString.
func (h *RouteHandler) Preview(c *gin.Context) {
	from, err := routing.ParseCoord(c.Query("from"))
	if err != nil {
		httputil.HandleError(c, apperror.BadRequest("from: "+err.Error()))
		return
	}
	to, err := routing.ParseCoord(c.Query("to"))
	if err != nil {
		httputil.HandleError(c, apperror.BadRequest("to: "+err.Error()))
		return
	}

	preview, err := h.tracking.PreviewRoute(c.Request.Context(), from, to)
	if err != nil {
		httputil.HandleError(c, toAppError(err))
		return
	}

	feature := geojson.NewFeature(routing.ToLineString(preview.Route))
	feature.Properties["distance_km"] = preview.DistanceKm
	feature.Properties["eta_minutes"] = preview.ETAMinutes
	feature.Properties["source"] = preview.Source

	httputil.OK(c, feature)
}
