package geospatial

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// Precision6 is the scale of polyline6 geometries (Mapbox, OSRM).
const Precision6 = 1e6

// Precision5 is the scale of the classic Google encoded polyline.
const Precision5 = 1e5

// DecodePolyline decodes an encoded polyline at the given scale into a path.
func DecodePolyline(encoded string, scale float64) (domain.GeoLineString, error) {
	if encoded == "" {
		return domain.GeoLineString{}, errors.New("encoded polyline string is empty")
	}

	codec := polyline.Codec{Dim: 2, Scale: scale}
	coords, _, err := codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return domain.GeoLineString{}, fmt.Errorf("decode polyline: %w", err)
	}

	path := domain.GeoLineString{Coordinates: make([]domain.GeoPoint, 0, len(coords))}
	for _, c := range coords {
		p := domain.GeoPoint{Lat: c[0], Lon: c[1]}
		if !p.Valid() {
			return domain.GeoLineString{}, fmt.Errorf("%w: decoded point %.6f,%.6f", domain.ErrInvalidCoordinate, p.Lat, p.Lon)
		}
		path.Coordinates = append(path.Coordinates, p)
	}
	return path, nil
}

// EncodePolyline encodes a path at the given scale.
func EncodePolyline(path domain.GeoLineString, scale float64) string {
	codec := polyline.Codec{Dim: 2, Scale: scale}
	coords := make([][]float64, len(path.Coordinates))
	for i, p := range path.Coordinates {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(codec.EncodeCoords(nil, coords))
}
