// Package routing turns two endpoints into a drivable route: an OSRM client,
// and a Provider that puts a cache in front of it and falls back to a
// straight line when the routing service is unavailable.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fitmatch/internal/domain/entities"
)

var (
	ErrNoRoute         = errors.New("routing service returned no route")
	ErrInvalidGeometry = errors.New("route geometry is not a line string")
)

// ParseCoord parses "lat,lon", e.g. "4.6097,-74.0817".
func ParseCoord(input string) (entities.GeoPoint, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return entities.GeoPoint{}, fmt.Errorf("invalid coordinate: %q", input)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return entities.GeoPoint{}, fmt.Errorf("invalid lat/lon: %q", input)
	}

	p := entities.NewGeoPoint(lat, lon)
	if !p.IsValid() {
		return entities.GeoPoint{}, fmt.Errorf("coordinate out of range: %q", input)
	}
	return p, nil
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry geojson.Geometry `json:"geometry"`
		Distance float64          `json:"distance"`
		Duration float64          `json:"duration"`
	} `json:"routes"`
}

// OSRMClient fetches driving routes from an OSRM-compatible HTTP service.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Route returns the full-resolution route geometry from `from` to `to`.
// OSRM speaks GeoJSON, whose positions are [lon, lat]; they are swapped into
// GeoPoints here.
func (c *OSRMClient) Route(ctx context.Context, from, to entities.GeoPoint) (entities.Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.baseURL, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building osrm request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting osrm route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm returned status %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding osrm response: %w", err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("osrm code %q: %s: %w", parsed.Code, parsed.Message, ErrNoRoute)
	}
	if len(parsed.Routes) == 0 {
		return nil, ErrNoRoute
	}

	line, ok := parsed.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, ErrInvalidGeometry
	}
	return FromLineString(line), nil
}

// FromLineString converts [lon, lat] positions to a Route.
func FromLineString(line orb.LineString) entities.Route {
	route := make(entities.Route, 0, len(line))
	for _, p := range line {
		route = append(route, entities.NewGeoPoint(p.Lat(), p.Lon()))
	}
	return route
}

// ToLineString converts a Route back to GeoJSON order.
func ToLineString(route entities.Route) orb.LineString {
	line := make(orb.LineString, 0, len(route))
	for _, p := range route {
		line = append(line, orb.Point{p.Longitude, p.Latitude})
	}
	return line
}
