package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	handler "github.com/samirrijal/carcompanion/internal/adapters/http"
	"github.com/samirrijal/carcompanion/internal/adapters/mapview"
	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/core/usecases"
)

const testSecret = "test-secret"

var bilbao = domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}

// ---- Mock providers ----

type mockPositions struct {
	state domain.PermissionState

	mu      sync.Mutex
	updates chan domain.PositionUpdate
}

func (m *mockPositions) CheckPermission(ctx context.Context) (domain.PermissionState, error) {
	if m.state == "" {
		return domain.PermissionGranted, nil
	}
	return m.state, nil
}

func (m *mockPositions) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	return m.CheckPermission(ctx)
}

func (m *mockPositions) CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error) {
	return domain.PositionSample{Location: bilbao, AccuracyMeters: 5, CapturedAt: time.Now()}, nil
}

func (m *mockPositions) Watch(ctx context.Context, opts domain.PositionOptions) (<-chan domain.PositionUpdate, error) {
	ch := make(chan domain.PositionUpdate)
	m.mu.Lock()
	m.updates = ch
	m.mu.Unlock()
	return ch, nil
}

func (m *mockPositions) emit(t *testing.T, p domain.GeoPoint) {
	t.Helper()
	m.mu.Lock()
	ch := m.updates
	m.mu.Unlock()
	if ch == nil {
		t.Fatal("no active watch")
	}
	select {
	case ch <- domain.PositionUpdate{Sample: domain.PositionSample{Location: p, CapturedAt: time.Now()}}:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not receive sample")
	}
}

type mockPlaces struct {
	searchFn func(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error)
}

func (m *mockPlaces) SearchText(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, nil
}

type mockDirections struct {
	directionsFn func(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error)
}

func (m *mockDirections) Directions(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error) {
	if m.directionsFn != nil {
		return m.directionsFn(ctx, origin, destination)
	}
	return &ports.Directions{}, nil
}

type mockTrips struct {
	trips    []domain.Trip
	odometer float64
	err      error

	gotOffset, gotLimit int
}

func (m *mockTrips) List(ctx context.Context, vehicleID string, offset, limit int) ([]domain.Trip, int, error) {
	m.gotOffset, m.gotLimit = offset, limit
	if m.err != nil {
		return nil, 0, m.err
	}
	end := min(offset+limit, len(m.trips))
	if offset >= len(m.trips) {
		return nil, len(m.trips), nil
	}
	return m.trips[offset:end], len(m.trips), nil
}

func (m *mockTrips) Odometer(ctx context.Context, vehicleID string) (float64, error) {
	return m.odometer, nil
}

// ---- Helpers ----

func newDeps(t *testing.T, places ports.PlaceSearchProvider, dirs ports.DirectionsProvider) *handler.Dependencies {
	t.Helper()
	return newDepsWithPositions(t, &mockPositions{}, places, dirs)
}

func newDepsWithPositions(t *testing.T, positions ports.PositionProvider, places ports.PlaceSearchProvider, dirs ports.DirectionsProvider) *handler.Dependencies {
	t.Helper()
	if places == nil {
		places = &mockPlaces{}
	}
	if dirs == nil {
		dirs = &mockDirections{}
	}

	svc := usecases.NewPositionService(positions)
	t.Cleanup(svc.Close)

	scene := mapview.NewScene(bilbao, usecases.MapZoom)
	return &handler.Dependencies{
		Tracker:   usecases.NewTripTracker(svc, usecases.WithVehicleID("car-1")),
		Search:    usecases.NewPlaceSearchService(places, usecases.WithSearchRenderer(scene)),
		Planner:   usecases.NewRoutePlanner(dirs, usecases.WithPlannerRenderer(scene)),
		Scene:     scene,
		VehicleID: "car-1",
		Language:  "en",
		Auth:      handler.AuthConfig{JWTSecret: testSecret, MapboxPublicToken: "pk.test-token"},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func signToken(t *testing.T, secret, userID string) string {
	t.Helper()
	claims := handler.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request %s %s: %v", req.Method, req.URL, err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func expectError(t *testing.T, resp *http.Response, body []byte, status int, code string) handler.APIError {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, body)
	}
	var apiErr handler.APIError
	decode(t, body, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %q, got %q", code, apiErr.Code)
	}
	if apiErr.RequestID == "" {
		t.Error("expected a request id in the error envelope")
	}
	return apiErr
}

func north(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + km/111.195, Lon: p.Lon}
}

func candidatesNear(center domain.GeoPoint) []ports.PlaceCandidate {
	return []ports.PlaceCandidate{
		{ID: "far", Name: "Far Garage", Address: "Calle 3", Location: north(center, 20)},
		{ID: "near", Name: "Near Garage", Address: "Calle 1", Location: north(center, 1)},
		{ID: "outside", Name: "Outside", Address: "Calle 9", Location: north(center, 80)},
	}
}

// ---- Health ----

func TestHealthHandler(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/health", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]any
	decode(t, body, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", result["status"])
	}
	if result["tracking"] != string(domain.TrackingIdle) {
		t.Errorf("expected idle tracker, got %v", result["tracking"])
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=10" {
		t.Errorf("unexpected Cache-Control %q", got)
	}
}

func TestReadyHandler_WithoutBus(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/ready", nil))
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var result struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, body, &result)
	if result.Checks["nats"] != "not configured" || result.Checks["database"] != "not configured" {
		t.Errorf("unexpected checks %v", result.Checks)
	}
}

// ---- Tracking ----

func TestTracking_StartStopWithoutMovement(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, body := do(t, app, httptest.NewRequest("POST", "/v1/tracking/start", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("start: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var snap domain.TrackingSnapshot
	decode(t, body, &snap)
	if snap.State != domain.TrackingActive {
		t.Fatalf("expected tracking, got %s", snap.State)
	}

	resp, body = do(t, app, httptest.NewRequest("POST", "/v1/tracking/stop", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	var stopped struct {
		Trip     *domain.Trip            `json:"trip"`
		Tracking domain.TrackingSnapshot `json:"tracking"`
	}
	decode(t, body, &stopped)
	if stopped.Trip != nil {
		t.Errorf("expected no trip without movement, got %+v", stopped.Trip)
	}
	if stopped.Tracking.State != domain.TrackingIdle {
		t.Errorf("expected idle after stop, got %s", stopped.Tracking.State)
	}
}

func TestTracking_RecordsTripAndHistory(t *testing.T) {
	positions := &mockPositions{}
	deps := newDepsWithPositions(t, positions, nil, nil)
	app := setupApp(deps)

	if resp, body := do(t, app, httptest.NewRequest("POST", "/v1/tracking/start", nil)); resp.StatusCode != 200 {
		t.Fatalf("start: %d %s", resp.StatusCode, body)
	}
	positions.emit(t, north(bilbao, 1))
	positions.emit(t, north(bilbao, 2))

	deadline := time.Now().Add(2 * time.Second)
	for deps.Tracker.LiveDistanceKm() < 1.99 {
		if time.Now().After(deadline) {
			t.Fatalf("live distance stuck at %v", deps.Tracker.LiveDistanceKm())
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/tracking", nil))
	var snap domain.TrackingSnapshot
	decode(t, body, &snap)
	if resp.StatusCode != 200 || snap.LiveDistanceKm < 1.99 || snap.LastPosition == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	_, body = do(t, app, httptest.NewRequest("POST", "/v1/tracking/stop", nil))
	var stopped struct {
		Trip *domain.Trip `json:"trip"`
	}
	decode(t, body, &stopped)
	if stopped.Trip == nil || stopped.Trip.VehicleID != "car-1" {
		t.Fatalf("expected a recorded trip, got %s", body)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/v1/tracking/history", nil))
	var history struct {
		Trips   []domain.Trip `json:"trips"`
		Mileage float64       `json:"total_mileage_km"`
	}
	decode(t, body, &history)
	if len(history.Trips) != 1 || history.Trips[0].ID != stopped.Trip.ID {
		t.Fatalf("unexpected history %s", body)
	}
	if history.Mileage != stopped.Trip.DistanceKm {
		t.Errorf("expected total %v, got %v", stopped.Trip.DistanceKm, history.Mileage)
	}

	resp, _ = do(t, app, httptest.NewRequest("DELETE", "/v1/tracking/history", nil))
	if resp.StatusCode != 204 {
		t.Fatalf("reset: expected 204, got %d", resp.StatusCode)
	}
	_, body = do(t, app, httptest.NewRequest("GET", "/v1/tracking/history", nil))
	decode(t, body, &history)
	if len(history.Trips) != 0 || history.Mileage != 0 {
		t.Errorf("expected empty history after reset, got %s", body)
	}
}

func TestTracking_StartDenied(t *testing.T) {
	deps := newDepsWithPositions(t, &mockPositions{state: domain.PermissionDenied}, nil, nil)
	app := setupApp(deps)

	resp, body := do(t, app, httptest.NewRequest("POST", "/v1/tracking/start", nil))
	expectError(t, resp, body, 403, "permission_denied")

	if deps.Tracker.State() != domain.TrackingIdle {
		t.Errorf("tracker must stay idle, got %s", deps.Tracker.State())
	}
}

// ---- Places ----

func TestCategories_Translated(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/categories?lang=es", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cats []struct {
		Category string   `json:"category"`
		Label    string   `json:"label"`
		Terms    []string `json:"terms"`
	}
	decode(t, body, &cats)
	if len(cats) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(cats))
	}
	if cats[1].Category != string(domain.CategoryCarWash) || cats[1].Label != "Lavado de coches" {
		t.Errorf("unexpected car wash entry %+v", cats[1])
	}
}

func TestCategories_AcceptLanguage(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	req := httptest.NewRequest("GET", "/v1/categories", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.5")
	resp, body := do(t, app, req)
	if got := resp.Header.Get("Content-Language"); got != "es" {
		t.Errorf("expected Content-Language es, got %q", got)
	}
	var cats []struct {
		Label string `json:"label"`
	}
	decode(t, body, &cats)
	if len(cats) != 3 || cats[1].Label != "Lavado de coches" {
		t.Errorf("unexpected categories %+v", cats)
	}

	resp, _ = do(t, app, httptest.NewRequest("GET", "/v1/categories?lang=ja", nil))
	if got := resp.Header.Get("Content-Language"); got != "en" {
		t.Errorf("expected english fallback, got %q", got)
	}
}

func TestLanguages_Listed(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/languages", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Default   string   `json:"default"`
		Languages []string `json:"languages"`
	}
	decode(t, body, &out)
	if out.Default != "en" || len(out.Languages) != 5 {
		t.Errorf("unexpected languages %+v", out)
	}
}

func TestCategories_ETag(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	resp, _ := do(t, app, httptest.NewRequest("GET", "/v1/categories", nil))
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/categories", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = do(t, app, req)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestNearbyPlaces_Validation(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "?lon=-2.93&category=car_wash"},
		{"bad lon", "?lat=43.2&lon=abc&category=car_wash"},
		{"out of range", "?lat=95&lon=-2.93&category=car_wash"},
		{"unknown category", "?lat=43.2&lon=-2.93&category=bakery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, httptest.NewRequest("GET", "/v1/places/nearby"+tt.query, nil))
			expectError(t, resp, body, 400, "bad_request")
		})
	}
}

func TestNearbyPlaces_AppliesResult(t *testing.T) {
	places := &mockPlaces{searchFn: func(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
		return candidatesNear(q.Proximity), nil
	}}
	app := setupApp(newDeps(t, places, nil))

	url := fmt.Sprintf("/v1/places/nearby?lat=%f&lon=%f&category=gas_station", bilbao.Lat, bilbao.Lon)
	resp, body := do(t, app, httptest.NewRequest("GET", url, nil))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result struct {
		Category string         `json:"category"`
		Places   []domain.Place `json:"places"`
	}
	decode(t, body, &result)
	if len(result.Places) != 2 {
		t.Fatalf("expected 2 places within the radius, got %d", len(result.Places))
	}
	if result.Places[0].ID != "near" || result.Places[1].ID != "far" {
		t.Errorf("expected nearest first, got %s, %s", result.Places[0].ID, result.Places[1].ID)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/v1/places", nil))
	var displayed struct {
		Category string         `json:"category"`
		Places   []domain.Place `json:"places"`
	}
	decode(t, body, &displayed)
	if displayed.Category != "gas_station" || len(displayed.Places) != 2 {
		t.Errorf("unexpected displayed set %s", body)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/v1/map", nil))
	var scene mapview.Snapshot
	decode(t, body, &scene)
	if len(scene.Markers) != 3 {
		t.Errorf("expected user marker plus 2 places, got %d", len(scene.Markers))
	}
}

func TestNearbyPlaces_AllTermsFail(t *testing.T) {
	places := &mockPlaces{searchFn: func(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
		return nil, domain.ErrRequestFailed
	}}
	app := setupApp(newDeps(t, places, nil))

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/places/nearby?lat=43.26&lon=-2.93&category=car_wash", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result struct {
		Places []domain.Place `json:"places"`
	}
	decode(t, body, &result)
	if result.Places == nil || len(result.Places) != 0 {
		t.Errorf("expected an empty list, got %s", body)
	}
}

// ---- Routes ----

func routeDeps(t *testing.T, dirs *mockDirections) (*handler.Dependencies, *fiber.App) {
	t.Helper()
	places := &mockPlaces{searchFn: func(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
		return candidatesNear(q.Proximity), nil
	}}
	deps := newDeps(t, places, dirs)
	app := setupApp(deps)

	resp, body := do(t, app, httptest.NewRequest("GET", "/v1/places/nearby?lat=43.263&lon=-2.935&category=service_center", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("seed places: %d %s", resp.StatusCode, body)
	}
	return deps, app
}

func planRequest(placeID string) *http.Request {
	body := fmt.Sprintf(`{"origin":{"lat":%f,"lon":%f},"place_id":%q}`, bilbao.Lat, bilbao.Lon, placeID)
	req := httptest.NewRequest("POST", "/v1/routes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRoutes_PlanExportAndClear(t *testing.T) {
	dirs := &mockDirections{directionsFn: func(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error) {
		return &ports.Directions{Routes: []ports.DirectionsRoute{{
			DistanceMeters:  1250,
			DurationSeconds: 180,
			Steps:           []ports.DirectionsStep{{Instruction: "Head north", DistanceMeters: 1250}},
			Path:            domain.GeoLineString{Coordinates: []domain.GeoPoint{origin, destination}},
		}}}, nil
	}}
	_, app := routeDeps(t, dirs)

	resp, body := do(t, app, planRequest("near"))
	if resp.StatusCode != 201 {
		t.Fatalf("plan: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var planned struct {
		Route domain.RouteResult `json:"route"`
	}
	decode(t, body, &planned)
	if planned.Route.TotalDistanceKm != 1.25 || planned.Route.TotalDurationMinutes != 3 {
		t.Errorf("unexpected units %+v", planned.Route)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", "/v1/routes/active", nil))
	var active domain.ActiveRoute
	decode(t, body, &active)
	if resp.StatusCode != 200 || active.Destination.ID != "near" {
		t.Fatalf("unexpected active route %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", "/v1/routes/active.geojson", nil))
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected geojson content type %q", ct)
	}
	if !strings.Contains(string(body), `"FeatureCollection"`) {
		t.Errorf("expected a FeatureCollection, got %s", body)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", "/v1/routes/active.kml", nil))
	if resp.StatusCode != 200 || !strings.Contains(string(body), "<kml") {
		t.Errorf("expected a KML document, got %d %s", resp.StatusCode, body)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/v1/map", nil))
	var scene mapview.Snapshot
	decode(t, body, &scene)
	if scene.Route == nil || scene.Route.Destination.ID != "near" {
		t.Errorf("expected the route on the map, got %s", body)
	}

	for i := 0; i < 2; i++ {
		resp, _ = do(t, app, httptest.NewRequest("DELETE", "/v1/routes", nil))
		if resp.StatusCode != 204 {
			t.Fatalf("clear #%d: expected 204, got %d", i+1, resp.StatusCode)
		}
	}
	resp, body = do(t, app, httptest.NewRequest("GET", "/v1/routes/active", nil))
	expectError(t, resp, body, 404, "not_found")
}

func TestRoutes_NoRouteFound(t *testing.T) {
	_, app := routeDeps(t, &mockDirections{})

	resp, body := do(t, app, planRequest("near"))
	expectError(t, resp, body, 404, "no_route")
}

func TestRoutes_ProviderFailure(t *testing.T) {
	dirs := &mockDirections{directionsFn: func(ctx context.Context, origin, destination domain.GeoPoint) (*ports.Directions, error) {
		return nil, fmt.Errorf("directions: %w", domain.ErrRequestFailed)
	}}
	_, app := routeDeps(t, dirs)

	resp, body := do(t, app, planRequest("near"))
	expectError(t, resp, body, 502, "upstream_error")
}

func TestRoutes_UnknownPlace(t *testing.T) {
	_, app := routeDeps(t, &mockDirections{})

	resp, body := do(t, app, planRequest("nope"))
	expectError(t, resp, body, 404, "not_found")

	req := httptest.NewRequest("POST", "/v1/routes", strings.NewReader(`{"origin":{"lat":1,"lon":2}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body = do(t, app, req)
	expectError(t, resp, body, 400, "bad_request")
}

// ---- Map token ----

func TestMapToken(t *testing.T) {
	deps := newDeps(t, nil, nil)
	app := setupApp(deps)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", 401, "No authorization header"},
		{"not bearer", "Basic abc", 401, "Unauthorized"},
		{"bad signature", "Bearer " + signToken(t, "other-secret", "user-1"), 401, "Unauthorized"},
		{"valid", "Bearer " + signToken(t, testSecret, "user-1"), 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/map-token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := do(t, app, req)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
			if tt.status == 200 {
				var result map[string]string
				decode(t, body, &result)
				if result["token"] != "pk.test-token" {
					t.Errorf("unexpected token %q", result["token"])
				}
				return
			}
			var apiErr handler.APIError
			decode(t, body, &apiErr)
			if apiErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestMapToken_NotConfigured(t *testing.T) {
	deps := newDeps(t, nil, nil)
	deps.Auth.MapboxPublicToken = ""
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/map-token", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	resp, body := do(t, app, req)
	apiErr := expectError(t, resp, body, 500, "internal_error")
	if apiErr.Message != "Mapbox token not configured" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestMapToken_LegacyPathIsDeprecated(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	req := httptest.NewRequest("GET", "/functions/v1/get-mapbox-token", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	resp, _ := do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/map-token") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
}

// ---- Archived trips ----

func TestListTrips_Paginated(t *testing.T) {
	now := time.Now().UTC()
	trips := &mockTrips{odometer: 42.5}
	for i := 0; i < 5; i++ {
		trips.trips = append(trips.trips, domain.Trip{
			ID: fmt.Sprintf("t%d", i), VehicleID: "car-1", DistanceKm: float64(i + 1),
			StartedAt: now.Add(-time.Hour), EndedAt: now,
		})
	}
	deps := newDeps(t, nil, nil)
	deps.Trips = trips
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips?offset=2&limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	resp, body := do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var page struct {
		Data       []domain.Trip      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
		Mileage    float64            `json:"total_mileage_km"`
	}
	decode(t, body, &page)
	if len(page.Data) != 2 || page.Data[0].ID != "t2" {
		t.Errorf("unexpected page %s", body)
	}
	if page.Pagination.Total != 5 || page.Mileage != 42.5 {
		t.Errorf("unexpected metadata %+v %v", page.Pagination, page.Mileage)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `offset=4&limit=2>; rel="next"`) || !strings.Contains(link, `offset=0&limit=2>; rel="prev"`) {
		t.Errorf("unexpected Link header %q", link)
	}
}

func TestListTrips_ClampsLimit(t *testing.T) {
	trips := &mockTrips{}
	deps := newDeps(t, nil, nil)
	deps.Trips = trips
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/trips?offset=-3&limit=9999", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	resp, body := do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if trips.gotOffset != 0 || trips.gotLimit != 50 {
		t.Errorf("expected clamped (0, 50), got (%d, %d)", trips.gotOffset, trips.gotLimit)
	}
}

func TestListTrips_Errors(t *testing.T) {
	token := "Bearer " + signToken(t, testSecret, "user-1")

	t.Run("not configured", func(t *testing.T) {
		app := setupApp(newDeps(t, nil, nil))
		req := httptest.NewRequest("GET", "/v1/trips", nil)
		req.Header.Set("Authorization", token)
		resp, body := do(t, app, req)
		expectError(t, resp, body, 503, "unavailable")
	})

	t.Run("repository failure", func(t *testing.T) {
		deps := newDeps(t, nil, nil)
		deps.Trips = &mockTrips{err: errors.New("connection reset")}
		app := setupApp(deps)
		req := httptest.NewRequest("GET", "/v1/trips", nil)
		req.Header.Set("Authorization", token)
		resp, body := do(t, app, req)
		expectError(t, resp, body, 500, "internal_error")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		app := setupApp(newDeps(t, nil, nil))
		resp, body := do(t, app, httptest.NewRequest("GET", "/v1/trips", nil))
		expectError(t, resp, body, 401, "unauthorized")
	})
}

// ---- GraphQL ----

func TestGraphQL_TrackingAndCategories(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	query := `{"query":"{ tracking { state live_distance_km } categories(lang: \"fr\") { category label } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Tracking struct {
				State string `json:"state"`
			} `json:"tracking"`
			Categories []struct {
				Category string `json:"category"`
				Label    string `json:"label"`
			} `json:"categories"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, body, &result)
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	if result.Data.Tracking.State != "idle" {
		t.Errorf("expected idle, got %q", result.Data.Tracking.State)
	}
	if len(result.Data.Categories) != 3 || result.Data.Categories[0].Label != "Garages" {
		t.Errorf("unexpected categories %+v", result.Data.Categories)
	}
}

func TestGraphQL_ActiveRouteNull(t *testing.T) {
	app := setupApp(newDeps(t, nil, nil))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ activeRoute { planned_at } }"}`))
	req.Header.Set("Content-Type", "application/json")
	_, body := do(t, app, req)
	if !strings.Contains(string(body), `"activeRoute":null`) {
		t.Errorf("expected null activeRoute, got %s", body)
	}
}
