package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

// RoutePlanner requests driving directions and owns the single route overlay.
type RoutePlanner struct {
	provider ports.DirectionsProvider
	renderer ports.MapRenderer
	notices  noticeSender
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	active     *domain.ActiveRoute
	origin     *domain.GeoPoint
}

// PlannerOption configures a RoutePlanner.
type PlannerOption func(*RoutePlanner)

func WithPlannerRenderer(r ports.MapRenderer) PlannerOption {
	return func(p *RoutePlanner) { p.renderer = r }
}

func WithPlannerNotifier(n ports.Notifier, tr ports.Translator) PlannerOption {
	return func(p *RoutePlanner) {
		p.notices.notifier = n
		if tr != nil {
			p.notices.t = tr
		}
	}
}

func WithPlannerClock(c ports.Clock) PlannerOption {
	return func(p *RoutePlanner) { p.notices.now = c }
}

// NewRoutePlanner creates a new RoutePlanner.
func NewRoutePlanner(provider ports.DirectionsProvider, opts ...PlannerOption) *RoutePlanner {
	p := &RoutePlanner{
		provider: provider,
		logger:   slog.Default().With("component", "route_planner"),
		notices:  noticeSender{t: echoTranslator, now: systemClock},
	}
	for _, o := range opts {
		o(p)
	}
	p.notices.logger = p.logger
	return p
}

// Plan fetches a driving route from origin to destination. On success the
// previous overlay is removed and the new route drawn. A result for a
// request that was overtaken by a newer Plan or Clear returns ErrSuperseded.
func (p *RoutePlanner) Plan(ctx context.Context, origin domain.GeoPoint, destination domain.Place) (*domain.RouteResult, error) {
	if !origin.Valid() || !destination.Location.Valid() {
		return nil, domain.ErrInvalidCoordinate
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	dirs, err := p.provider.Directions(ctx, origin, destination.Location)
	if err == nil && (dirs == nil || len(dirs.Routes) == 0) {
		err = domain.ErrNoRouteFound
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("directions").Inc()
		return nil, domain.ErrSuperseded
	}

	if err != nil {
		p.mu.Unlock()
		return nil, p.fail(ctx, destination, err)
	}

	result := toRouteResult(dirs.Routes[0])
	active := &domain.ActiveRoute{
		Origin:      origin,
		Destination: destination,
		Route:       result,
		PlannedAt:   p.notices.now(),
	}
	if p.renderer != nil {
		p.renderer.SetRoute(nil)
		p.renderer.SetRoute(active)
	}
	p.active = active
	o := origin
	p.origin = &o
	p.mu.Unlock()

	metrics.DirectionsRequests.WithLabelValues("ok").Inc()
	p.logger.Info("route planned", "destination", destination.ID,
		"distance_km", result.TotalDistanceKm, "duration_min", result.TotalDurationMinutes)
	p.notices.send(ctx, domain.NoticeSuccess, "route.found", result.TotalDistanceKm, result.TotalDurationMinutes)

	out := result
	return &out, nil
}

func (p *RoutePlanner) fail(ctx context.Context, destination domain.Place, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoRouteFound):
		metrics.DirectionsRequests.WithLabelValues("no_route").Inc()
		p.notices.send(ctx, domain.NoticeError, "route.none", destination.Name)
		return err
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.DirectionsRequests.WithLabelValues("unauthorized").Inc()
		p.notices.send(ctx, domain.NoticeError, "map.unauthorized")
		return err
	default:
		metrics.DirectionsRequests.WithLabelValues("failed").Inc()
		p.logger.Warn("directions failed", "destination", destination.ID, "error", err)
		p.notices.send(ctx, domain.NoticeError, "route.failed")
		if errors.Is(err, domain.ErrRequestFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrRequestFailed, err)
	}
}

func toRouteResult(r ports.DirectionsRoute) domain.RouteResult {
	steps := make([]domain.RouteStep, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = domain.RouteStep{
			Instruction: s.Instruction,
			DistanceKm:  s.DistanceMeters / 1000,
		}
	}
	path := domain.GeoLineString{Coordinates: append([]domain.GeoPoint(nil), r.Path.Coordinates...)}
	return domain.RouteResult{
		TotalDistanceKm:      r.DistanceMeters / 1000,
		TotalDurationMinutes: r.DurationSeconds / 60,
		Steps:                steps,
		Path:                 path,
	}
}

// Clear removes the route overlay and recenters the map on the last origin.
// In-flight Plan calls become stale. Clear is idempotent.
func (p *RoutePlanner) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.active = nil
	if p.renderer == nil {
		return
	}
	p.renderer.SetRoute(nil)
	if p.origin != nil {
		p.renderer.SetView(domain.MapView{Center: *p.origin, Zoom: MapZoom})
	}
}

// Active returns the displayed route, or nil.
func (p *RoutePlanner) Active() *domain.ActiveRoute {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	a := *p.active
	return &a
}
