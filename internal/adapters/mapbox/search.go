package mapbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

const searchPath = "/search/searchbox/v1/forward"

// SearchText runs a forward text search biased toward q.Proximity.
func (c *Client) SearchText(ctx context.Context, q ports.PlaceQuery) (result []ports.PlaceCandidate, err error) {
	ctx, span := c.tracer.Start(ctx, "mapbox.search", trace.WithAttributes(
		attribute.String("mapbox.term", q.Term),
		attribute.Int("mapbox.limit", q.Limit),
	))
	defer func() { endSpan(span, err) }()
	defer metrics.ObserveProvider("mapbox", "search", time.Now())

	params := map[string]string{
		"q":         q.Term,
		"proximity": lonLat(q.Proximity),
		"types":     "poi",
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Bounds != nil {
		params["bbox"] = bbox(*q.Bounds)
	}

	body, _, err := c.get(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", domain.ErrRequestFailed, err)
	}
	return candidatesFromFeatures(fc, q.Bounds), nil
}

// bbox formats b as minLon,minLat,maxLon,maxLat.
func bbox(b domain.Bounds) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(b.MinLon) + "," + f(b.MinLat) + "," + f(b.MaxLon) + "," + f(b.MaxLat)
}

// candidatesFromFeatures converts point features, dropping any outside
// bounds when it is non-nil.
func candidatesFromFeatures(fc *geojson.FeatureCollection, bounds *domain.Bounds) []ports.PlaceCandidate {
	out := make([]ports.PlaceCandidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		loc := domain.GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()}
		if !loc.Valid() {
			continue
		}
		if bounds != nil && !bounds.Contains(loc) {
			continue
		}

		id := f.Properties.MustString("mapbox_id", "")
		if id == "" {
			if s, ok := f.ID.(string); ok {
				id = s
			}
		}
		address := f.Properties.MustString("full_address", "")
		if address == "" {
			address = f.Properties.MustString("place_formatted", "")
		}
		out = append(out, ports.PlaceCandidate{
			ID:       id,
			Name:     f.Properties.MustString("name", ""),
			Address:  address,
			Location: loc,
		})
	}
	return out
}
