// Package mapview keeps the map overlay state the UI renders: the camera,
// the marker set and at most one route.
package mapview

import (
	"sync"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// Snapshot is a copy of the scene at one point in time.
type Snapshot struct {
	View    domain.MapView      `json:"view"`
	Markers []domain.Marker     `json:"markers"`
	Route   *domain.ActiveRoute `json:"route,omitempty"`
	Version uint64              `json:"version"`
}

// Scene implements ports.MapRenderer in memory.
type Scene struct {
	// publishMu serializes update so listeners see versions in order.
	publishMu sync.Mutex

	mu       sync.RWMutex
	view     domain.MapView
	markers  []domain.Marker
	route    *domain.ActiveRoute
	version  uint64
	onChange func(Snapshot)
}

// NewScene creates an empty scene centered on center.
func NewScene(center domain.GeoPoint, zoom float64) *Scene {
	return &Scene{view: domain.MapView{Center: center, Zoom: zoom}}
}

// OnChange registers fn to receive a snapshot after every change.
// Snapshots arrive one at a time in increasing Version order. fn runs
// synchronously and must not call back into the scene's setters.
func (s *Scene) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetMarkers replaces the whole marker set.
func (s *Scene) SetMarkers(markers []domain.Marker) {
	s.update(func() { s.markers = append([]domain.Marker(nil), markers...) })
}

// SetRoute draws route, replacing any previous one. nil removes it.
func (s *Scene) SetRoute(route *domain.ActiveRoute) {
	s.update(func() {
		if route == nil {
			s.route = nil
			return
		}
		r := *route
		s.route = &r
	})
}

func (s *Scene) SetView(view domain.MapView) {
	s.update(func() { s.view = view })
}

func (s *Scene) update(apply func()) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	apply()
	s.version++
	snap := s.snapshotLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Snapshot returns a copy of the current scene.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() Snapshot {
	snap := Snapshot{
		View:    s.view,
		Markers: append([]domain.Marker(nil), s.markers...),
		Version: s.version,
	}
	if s.route != nil {
		r := *s.route
		snap.Route = &r
	}
	return snap
}
