package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// --- Position provider ---

type mockPositionProvider struct {
	checkFn   func(ctx context.Context) (domain.PermissionState, error)
	requestFn func(ctx context.Context) (domain.PermissionState, error)
	currentFn func(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error)
	watchErr  error

	mu        sync.Mutex
	requested int
	watches   int
	updates   chan domain.PositionUpdate
	watchCtx  context.Context
}

func (m *mockPositionProvider) CheckPermission(ctx context.Context) (domain.PermissionState, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return domain.PermissionGranted, nil
}

func (m *mockPositionProvider) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	m.mu.Lock()
	m.requested++
	m.mu.Unlock()
	if m.requestFn != nil {
		return m.requestFn(ctx)
	}
	return domain.PermissionGranted, nil
}

func (m *mockPositionProvider) CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx, opts)
	}
	return sampleAt(origin), nil
}

func (m *mockPositionProvider) Watch(ctx context.Context, opts domain.PositionOptions) (<-chan domain.PositionUpdate, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	ch := make(chan domain.PositionUpdate)
	m.mu.Lock()
	m.watches++
	m.updates = ch
	m.watchCtx = ctx
	m.mu.Unlock()
	return ch, nil
}

// emit hands one update to the active watch, failing if nobody receives it.
func (m *mockPositionProvider) emit(t *testing.T, u domain.PositionUpdate) {
	t.Helper()
	m.mu.Lock()
	ch := m.updates
	m.mu.Unlock()
	if ch == nil {
		t.Fatal("no active watch")
	}
	select {
	case ch <- u:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not receive update")
	}
}

func (m *mockPositionProvider) watchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watches
}

func (m *mockPositionProvider) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requested
}

func (m *mockPositionProvider) lastWatchCtx() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watchCtx
}

// --- Notifier ---

type mockNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (m *mockNotifier) Notify(ctx context.Context, n domain.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	return nil
}

func (m *mockNotifier) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notices))
	for i, n := range m.notices {
		out[i] = n.Title
	}
	return out
}

func (m *mockNotifier) has(title string) bool {
	for _, t := range m.titles() {
		if t == title {
			return true
		}
	}
	return false
}

// --- Map renderer ---

type mockRenderer struct {
	mu      sync.Mutex
	markers []domain.Marker
	routes  []*domain.ActiveRoute
	views   []domain.MapView
}

func (m *mockRenderer) SetMarkers(markers []domain.Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append([]domain.Marker(nil), markers...)
}

func (m *mockRenderer) SetRoute(route *domain.ActiveRoute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
}

func (m *mockRenderer) SetView(view domain.MapView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, view)
}

// --- Place search provider ---

type mockPlaceProvider struct {
	searchFn func(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error)

	mu    sync.Mutex
	calls []ports.PlaceQuery
}

func (m *mockPlaceProvider) SearchText(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, nil
}

func (m *mockPlaceProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- Directions provider ---

type mockDirections struct {
	directionsFn func(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error)
}

func (m *mockDirections) Directions(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error) {
	if m.directionsFn != nil {
		return m.directionsFn(ctx, origin, destination)
	}
	return &ports.Directions{}, nil
}

// --- Cache ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Trip archive / publisher ---

type mockArchive struct {
	mu    sync.Mutex
	trips []domain.Trip
	err   error
}

func (m *mockArchive) Archive(ctx context.Context, trip domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, trip)
	return m.err
}

type mockPublisher struct {
	mu    sync.Mutex
	trips []*domain.Trip
}

func (m *mockPublisher) PublishTrip(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, trip)
	return nil
}
func (m *mockPublisher) PublishNotice(ctx context.Context, n domain.Notice) error { return nil }
func (m *mockPublisher) PublishPosition(ctx context.Context, s domain.PositionSample) error {
	return nil
}

// --- Helpers ---

var origin = domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}

func sampleAt(p domain.GeoPoint) domain.PositionSample {
	return domain.PositionSample{Location: p, AccuracyMeters: 5, CapturedAt: time.Now()}
}

// north returns a point km kilometers due north of p.
func north(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + km/111.19492664455873, Lon: p.Lon}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
