package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/pkg/geospatial"
)

// parseCoord parses "lat,lon".
func parseCoord(s string) (domain.GeoPoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("coordinates must be lat,lon: %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("longitude: %w", err)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, domain.ErrInvalidCoordinate
	}
	return p, nil
}

// resample walks the path emitting a point every stepKm, so the car moves at
// a constant speed regardless of how densely the geometry is sampled.
// The last vertex is always included.
func resample(path domain.GeoLineString, stepKm float64) []domain.GeoPoint {
	coords := path.Coordinates
	if len(coords) == 0 {
		return nil
	}
	if stepKm <= 0 || len(coords) == 1 {
		return append([]domain.GeoPoint(nil), coords...)
	}

	out := []domain.GeoPoint{coords[0]}
	carry := 0.0 // distance already travelled since the last emitted point
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		seg := geospatial.DistanceKm(a, b)
		if seg == 0 {
			continue
		}
		pos := stepKm - carry
		for pos <= seg {
			out = append(out, lerp(a, b, pos/seg))
			pos += stepKm
		}
		carry = seg - (pos - stepKm)
	}

	if last := coords[len(coords)-1]; out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

func lerp(a, b domain.GeoPoint, f float64) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lon: a.Lon + (b.Lon-a.Lon)*f,
	}
}

type jitter struct {
	meters float64
	rnd    *rand.Rand
}

func newJitter(meters float64) jitter {
	return jitter{meters: meters, rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// apply offsets p by up to meters in a random direction.
func (j jitter) apply(p domain.GeoPoint) domain.GeoPoint {
	if j.meters <= 0 {
		return p
	}
	r := j.rnd.Float64() * j.meters / 1000
	theta := j.rnd.Float64() * 2 * math.Pi
	dLat := r / 111.32
	dLon := r / (111.32 * math.Cos(p.Lat*math.Pi/180))
	return domain.GeoPoint{
		Lat: p.Lat + dLat*math.Sin(theta),
		Lon: p.Lon + dLon*math.Cos(theta),
	}
}
