package geospatial

import (
	"math"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b in kilometers.
// It is symmetric and zero for identical points.
func DistanceKm(a, b domain.GeoPoint) float64 {
	if a == b {
		return 0
	}
	return haversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox returns a box enclosing the circle of radiusKm around center.
func BoundingBox(center domain.GeoPoint, radiusKm float64) domain.Bounds {
	latDelta := radiusKm / 111.32
	lonDelta := radiusKm / (111.32 * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLon: math.Max(center.Lon-lonDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLon: math.Min(center.Lon+lonDelta, 180),
	}
}

// PathLengthKm sums the segment distances of a line string.
func PathLengthKm(path domain.GeoLineString) float64 {
	var total float64
	for i := 1; i < len(path.Coordinates); i++ {
		total += DistanceKm(path.Coordinates[i-1], path.Coordinates[i])
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
