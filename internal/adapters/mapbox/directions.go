package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/geospatial"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

const directionsPath = "/directions/v5/mapbox/driving/"

type directionsResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Routes  []directionRoute `json:"routes"`
}

type directionRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry string  `json:"geometry"`
	Legs     []struct {
		Steps []struct {
			Distance float64 `json:"distance"`
			Maneuver struct {
				Instruction string `json:"instruction"`
			} `json:"maneuver"`
		} `json:"steps"`
	} `json:"legs"`
}

// Directions requests a driving route. Routes come back in provider units
// (meters, seconds). A NoRoute answer yields an empty route list.
func (c *Client) Directions(ctx context.Context, origin, destination domain.GeoPoint) (result *ports.Directions, err error) {
	ctx, span := c.tracer.Start(ctx, "mapbox.directions")
	defer func() { endSpan(span, err) }()
	defer metrics.ObserveProvider("mapbox", "directions", time.Now())

	path := directionsPath + lonLat(origin) + ";" + lonLat(destination)
	body, status, err := c.get(ctx, path, map[string]string{
		"steps":      "true",
		"geometries": "polyline6",
		"overview":   "full",
	})
	if err != nil {
		// 422 NoSegment / NoRoute come back as client errors with a code.
		if errors.Is(err, domain.ErrRequestFailed) && status == 422 && isNoRoute(body) {
			return &ports.Directions{}, nil
		}
		return nil, err
	}

	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode directions response: %v", domain.ErrRequestFailed, err)
	}
	span.SetAttributes(attribute.String("mapbox.code", resp.Code), attribute.Int("mapbox.routes", len(resp.Routes)))

	switch resp.Code {
	case "Ok", "":
	case "NoRoute", "NoSegment":
		return &ports.Directions{}, nil
	default:
		return nil, fmt.Errorf("%w: directions code %s: %s", domain.ErrRequestFailed, resp.Code, resp.Message)
	}

	out := &ports.Directions{Routes: make([]ports.DirectionsRoute, 0, len(resp.Routes))}
	for _, r := range resp.Routes {
		route, err := toDirectionsRoute(r)
		if err != nil {
			return nil, err
		}
		out.Routes = append(out.Routes, route)
	}
	return out, nil
}

func toDirectionsRoute(r directionRoute) (ports.DirectionsRoute, error) {
	route := ports.DirectionsRoute{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, ports.DirectionsStep{
				Instruction:    s.Maneuver.Instruction,
				DistanceMeters: s.Distance,
			})
		}
	}
	if r.Geometry != "" {
		path, err := geospatial.DecodePolyline(r.Geometry, geospatial.Precision6)
		if err != nil {
			return route, fmt.Errorf("%w: decode route geometry: %v", domain.ErrRequestFailed, err)
		}
		route.Path = path
	}
	return route, nil
}

func isNoRoute(body []byte) bool {
	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Code == "NoRoute" || resp.Code == "NoSegment"
}
