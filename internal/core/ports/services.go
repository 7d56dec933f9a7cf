package ports

import (
	"context"
	"time"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// PositionProvider is the host platform's location capability.
type PositionProvider interface {
	CheckPermission(ctx context.Context) (domain.PermissionState, error)
	RequestPermission(ctx context.Context) (domain.PermissionState, error)
	CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error)
	// Watch streams samples in emission order until ctx is cancelled,
	// then closes the channel.
	Watch(ctx context.Context, opts domain.PositionOptions) (<-chan domain.PositionUpdate, error)
}

// PlaceQuery is one free-text search request biased toward a point.
// When Bounds is set the provider only returns hits inside it.
type PlaceQuery struct {
	Term      string
	Proximity domain.GeoPoint
	Bounds    *domain.Bounds
	Limit     int
}

// PlaceCandidate is a raw search hit before distance filtering.
type PlaceCandidate struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Location domain.GeoPoint `json:"location"`
}

// PlaceSearchProvider is an external text-search endpoint.
type PlaceSearchProvider interface {
	SearchText(ctx context.Context, q PlaceQuery) ([]PlaceCandidate, error)
}

// DirectionsProvider is an external driving-directions endpoint.
// Distances are reported in meters and durations in seconds.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination domain.GeoPoint) (*Directions, error)
}

// Directions is a provider response in provider units.
type Directions struct {
	Routes []DirectionsRoute
}

// DirectionsRoute is one alternative in a directions response.
type DirectionsRoute struct {
	DistanceMeters  float64
	DurationSeconds float64
	Steps           []DirectionsStep
	Path            domain.GeoLineString
}

// DirectionsStep is a single maneuver in provider units.
type DirectionsStep struct {
	Instruction    string
	DistanceMeters float64
}

// TokenSource returns a short-lived credential for the mapping provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Notifier is the user-facing toast/alert sink.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice) error
}

// Translator looks up a localized message by key.
type Translator func(key string, args ...any) string

// MapRenderer owns the map overlay: a marker set and at most one route line.
type MapRenderer interface {
	SetMarkers(markers []domain.Marker)
	SetRoute(route *domain.ActiveRoute)
	SetView(view domain.MapView)
}

// PushProvider is the host platform's push notification capability.
type PushProvider interface {
	CheckPermission(ctx context.Context) (domain.PermissionState, error)
	RequestPermission(ctx context.Context) (domain.PermissionState, error)
	// Register starts registration and streams every push event
	// until ctx is cancelled, then closes the channel.
	Register(ctx context.Context) (<-chan domain.PushEvent, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishTrip(ctx context.Context, trip *domain.Trip) error
	PublishNotice(ctx context.Context, n domain.Notice) error
	PublishPosition(ctx context.Context, sample domain.PositionSample) error
}

// CacheService provides read-through caching. Get reports an absent key
// as domain.ErrCacheMiss.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TripArchive receives finished trips for durable storage.
type TripArchive interface {
	Archive(ctx context.Context, trip domain.Trip) error
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
