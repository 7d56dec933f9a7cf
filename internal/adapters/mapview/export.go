package mapview

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kml "github.com/twpayne/go-kml"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// RouteFeatureCollection renders a route as GeoJSON: the path as a
// LineString plus origin and destination points.
func RouteFeatureCollection(r *domain.ActiveRoute) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(r.Route.Path.Coordinates))
	for _, p := range r.Route.Path.Coordinates {
		line = append(line, orb.Point{p.Lon, p.Lat})
	}
	path := geojson.NewFeature(line)
	path.Properties["kind"] = "route"
	path.Properties["distance_km"] = r.Route.TotalDistanceKm
	path.Properties["duration_min"] = r.Route.TotalDurationMinutes
	path.Properties["steps"] = len(r.Route.Steps)
	fc.Append(path)

	origin := geojson.NewFeature(orb.Point{r.Origin.Lon, r.Origin.Lat})
	origin.Properties["kind"] = "origin"
	fc.Append(origin)

	dest := geojson.NewFeature(orb.Point{r.Destination.Location.Lon, r.Destination.Location.Lat})
	dest.Properties["kind"] = "destination"
	dest.Properties["id"] = r.Destination.ID
	dest.Properties["name"] = r.Destination.Name
	dest.Properties["address"] = r.Destination.Address
	fc.Append(dest)

	return fc
}

// RouteKML renders a route as a KML document.
func RouteKML(r *domain.ActiveRoute) ([]byte, error) {
	coords := make([]kml.Coordinate, 0, len(r.Route.Path.Coordinates))
	for _, p := range r.Route.Path.Coordinates {
		coords = append(coords, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
	}

	doc := kml.KML(
		kml.Document(
			kml.Name("Route to "+r.Destination.Name),
			kml.Placemark(
				kml.Name(fmt.Sprintf("%.1f km, %.0f min", r.Route.TotalDistanceKm, r.Route.TotalDurationMinutes)),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
			kml.Placemark(
				kml.Name(r.Destination.Name),
				kml.Description(r.Destination.Address),
				kml.Point(kml.Coordinates(kml.Coordinate{Lon: r.Destination.Location.Lon, Lat: r.Destination.Location.Lat})),
			),
		),
	)

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}
	return buf.Bytes(), nil
}
