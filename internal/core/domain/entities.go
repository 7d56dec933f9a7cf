package domain

import (
	"time"
)

// PermissionState is the OS-level location or notification permission.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// PositionSample is a single fix delivered by a position provider.
type PositionSample struct {
	Location       GeoPoint  `json:"location"`
	AccuracyMeters float64   `json:"accuracy_m"`
	CapturedAt     time.Time `json:"captured_at"`
}

// PositionOptions tune one-shot and continuous position reads.
type PositionOptions struct {
	HighAccuracy bool          `json:"high_accuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaxCacheAge  time.Duration `json:"max_cache_age"`
}

// DefaultPositionOptions asks for a fresh high-accuracy fix within 10 seconds.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaxCacheAge:  0,
	}
}

// PositionUpdate is one item on a watch stream: either a sample or a provider error.
type PositionUpdate struct {
	Sample PositionSample
	Err    error
}

// Trip is a finished tracking session with its accumulated distance.
type Trip struct {
	ID         string    `json:"id"`
	VehicleID  string    `json:"vehicle_id,omitempty"`
	DistanceKm float64   `json:"distance_km"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// TrackingState is the state of the trip tracker.
type TrackingState string

const (
	TrackingIdle   TrackingState = "idle"
	TrackingActive TrackingState = "tracking"
)

// TrackingSnapshot is a point-in-time view of the tracker.
type TrackingSnapshot struct {
	State          TrackingState `json:"state"`
	LiveDistanceKm float64       `json:"live_distance_km"`
	LastPosition   *GeoPoint     `json:"last_position,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	TripCount      int           `json:"trip_count"`
	TotalMileageKm float64       `json:"total_mileage_km"`
}

// Place is a nearby point of interest returned by a place search.
type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Location   GeoPoint `json:"location"`
	DistanceKm *float64 `json:"distance_km,omitempty"` // computed field
	Category   Category `json:"category"`
}

// RouteStep is a single maneuver in a driving route.
type RouteStep struct {
	Instruction string  `json:"instruction"`
	DistanceKm  float64 `json:"distance_km"`
}

// RouteResult is a planned driving route.
type RouteResult struct {
	TotalDistanceKm      float64       `json:"total_distance_km"`
	TotalDurationMinutes float64       `json:"total_duration_minutes"`
	Steps                []RouteStep   `json:"steps"`
	Path                 GeoLineString `json:"path"`
}

// ActiveRoute is the route currently drawn on the map.
type ActiveRoute struct {
	Origin      GeoPoint    `json:"origin"`
	Destination Place       `json:"destination"`
	Route       RouteResult `json:"route"`
	PlannedAt   time.Time   `json:"planned_at"`
}

// Marker is a pin on the map overlay.
type Marker struct {
	ID       string   `json:"id"`
	Location GeoPoint `json:"location"`
	Color    string   `json:"color"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail,omitempty"`
}

// MapView is the camera position of the map.
type MapView struct {
	Center GeoPoint `json:"center"`
	Zoom   float64  `json:"zoom"`
}

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a toast or alert shown to the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Session carries the authenticated user's credentials.
type Session struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"-"`
}
