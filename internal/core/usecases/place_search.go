package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/geospatial"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

const (
	DefaultSearchRadiusKm = 50.0
	DefaultPerTermLimit   = 5
	DefaultMaxResults     = 10
	defaultSearchCacheTTL = 300

	// MapZoom is the zoom level used when centering the map on the user.
	MapZoom = 12.0
)

// PlaceSearchService finds nearby places for a category and owns the
// displayed result set and its markers.
type PlaceSearchService struct {
	provider     ports.PlaceSearchProvider
	cache        ports.CacheService
	renderer     ports.MapRenderer
	notices      noticeSender
	logger       *slog.Logger
	radiusKm     float64
	perTermLimit int
	maxResults   int
	cacheTTL     int

	mu         sync.Mutex
	generation uint64
	category   domain.Category
	center     *domain.GeoPoint
	places     []domain.Place
}

// SearchOption configures a PlaceSearchService.
type SearchOption func(*PlaceSearchService)

func WithSearchCache(c ports.CacheService, ttlSeconds int) SearchOption {
	return func(s *PlaceSearchService) {
		s.cache = c
		if ttlSeconds > 0 {
			s.cacheTTL = ttlSeconds
		}
	}
}

func WithSearchRenderer(r ports.MapRenderer) SearchOption {
	return func(s *PlaceSearchService) { s.renderer = r }
}

func WithSearchNotifier(n ports.Notifier, tr ports.Translator) SearchOption {
	return func(s *PlaceSearchService) {
		s.notices.notifier = n
		if tr != nil {
			s.notices.t = tr
		}
	}
}

// WithSearchLimits overrides the radius, per-term limit and result cap.
// Non-positive values keep the defaults.
func WithSearchLimits(radiusKm float64, perTermLimit, maxResults int) SearchOption {
	return func(s *PlaceSearchService) {
		if radiusKm > 0 {
			s.radiusKm = radiusKm
		}
		if perTermLimit > 0 {
			s.perTermLimit = perTermLimit
		}
		if maxResults > 0 {
			s.maxResults = maxResults
		}
	}
}

// NewPlaceSearchService creates a new PlaceSearchService.
func NewPlaceSearchService(provider ports.PlaceSearchProvider, opts ...SearchOption) *PlaceSearchService {
	s := &PlaceSearchService{
		provider:     provider,
		logger:       slog.Default().With("component", "place_search"),
		notices:      noticeSender{t: echoTranslator, now: systemClock},
		radiusKm:     DefaultSearchRadiusKm,
		perTermLimit: DefaultPerTermLimit,
		maxResults:   DefaultMaxResults,
		cacheTTL:     defaultSearchCacheTTL,
	}
	for _, o := range opts {
		o(s)
	}
	s.notices.logger = s.logger
	return s
}

// Search queries every term of category around center, drops candidates
// beyond the radius, collapses duplicate ids, sorts by distance and keeps
// the closest results. Failed terms are skipped; when all of them fail the
// result is empty and the error wraps ErrRequestFailed.
func (s *PlaceSearchService) Search(ctx context.Context, center domain.GeoPoint, category domain.Category) ([]domain.Place, error) {
	spec, err := searchSpec(center, category)
	if err != nil {
		return nil, err
	}

	bounds := geospatial.BoundingBox(center, s.radiusKm)
	results := make([][]ports.PlaceCandidate, len(spec.Terms))
	errs := make([]error, len(spec.Terms))
	var wg sync.WaitGroup
	for i, term := range spec.Terms {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			results[i], errs[i] = s.searchTerm(ctx, ports.PlaceQuery{
				Term:      term,
				Proximity: center,
				Bounds:    &bounds,
				Limit:     s.perTermLimit,
			})
		}(i, term)
	}
	wg.Wait()

	failed := 0
	byID := make(map[string]domain.Place)
	for i, candidates := range results {
		if errs[i] != nil {
			failed++
			metrics.SearchTermFailures.WithLabelValues(string(category)).Inc()
			s.logger.Warn("search term failed", "term", spec.Terms[i], "error", errs[i])
			continue
		}
		for _, c := range candidates {
			if !c.Location.Valid() {
				continue
			}
			d := geospatial.DistanceKm(center, c.Location)
			if d > s.radiusKm {
				continue
			}
			key := c.ID
			if key == "" {
				key = fmt.Sprintf("%s@%.6f,%.6f", strings.ToLower(c.Name), c.Location.Lat, c.Location.Lon)
			}
			byID[key] = domain.Place{
				ID:         key,
				Name:       c.Name,
				Address:    c.Address,
				Location:   c.Location,
				DistanceKm: &d,
				Category:   category,
			}
		}
	}

	places := make([]domain.Place, 0, len(byID))
	if failed == len(spec.Terms) {
		metrics.PlaceSearches.WithLabelValues(string(category), "failed").Inc()
		return places, fmt.Errorf("%w: all %d search terms failed: %w", domain.ErrRequestFailed, failed, errors.Join(errs...))
	}

	for _, p := range byID {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool {
		di, dj := *places[i].DistanceKm, *places[j].DistanceKm
		if di != dj {
			return di < dj
		}
		return places[i].ID < places[j].ID
	})
	if len(places) > s.maxResults {
		places = places[:s.maxResults]
	}

	metrics.PlaceSearches.WithLabelValues(string(category), "ok").Inc()
	return places, nil
}

func searchSpec(center domain.GeoPoint, category domain.Category) (domain.CategorySpec, error) {
	if !center.Valid() {
		return domain.CategorySpec{}, fmt.Errorf("%w: %.6f,%.6f", domain.ErrInvalidCoordinate, center.Lat, center.Lon)
	}
	return category.Spec()
}

// searchTerm is a read-through cache around one provider request.
func (s *PlaceSearchService) searchTerm(ctx context.Context, q ports.PlaceQuery) ([]ports.PlaceCandidate, error) {
	cacheKey := fmt.Sprintf("places:%s:%.3f:%.3f:%d", strings.ToLower(q.Term), q.Proximity.Lat, q.Proximity.Lon, q.Limit)
	if b := q.Bounds; b != nil {
		cacheKey += fmt.Sprintf(":%.3f,%.3f,%.3f,%.3f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	}
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var candidates []ports.PlaceCandidate
			if err := json.Unmarshal(data, &candidates); err == nil {
				metrics.CacheHits.WithLabelValues("places").Inc()
				return candidates, nil
			}
			s.logger.Warn("discarding undecodable cache entry", "key", cacheKey)
		case !errors.Is(err, domain.ErrCacheMiss):
			s.logger.Warn("place cache read failed", "key", cacheKey, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("places").Inc()
	}

	candidates, err := s.provider.SearchText(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(candidates); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return candidates, nil
}

// Show runs Search and, if no newer Show started meanwhile, replaces the
// displayed places and the whole marker overlay. A superseded call returns
// ErrSuperseded and changes nothing. Invalid input is rejected before it
// can supersede anything. When every term fails the displayed set is
// emptied, a notice is sent and the error is not returned.
func (s *PlaceSearchService) Show(ctx context.Context, center domain.GeoPoint, category domain.Category) ([]domain.Place, error) {
	if _, err := searchSpec(center, category); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	places, err := s.Search(ctx, center, category)
	if err != nil && !errors.Is(err, domain.ErrRequestFailed) {
		return nil, err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("places").Inc()
		s.logger.Debug("discarding stale search result", "category", category)
		return nil, domain.ErrSuperseded
	}
	c := center
	s.category = category
	s.center = &c
	s.places = places
	if s.renderer != nil {
		s.renderer.SetMarkers(placeMarkers(center, places))
		s.renderer.SetView(domain.MapView{Center: center, Zoom: MapZoom})
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.notices.send(ctx, domain.NoticeError, "search.failed")
	case len(places) == 0:
		s.notices.send(ctx, domain.NoticeInfo, "search.none", s.radiusKm)
	default:
		s.notices.send(ctx, domain.NoticeSuccess, "search.found", len(places))
	}
	return places, nil
}

func placeMarkers(center domain.GeoPoint, places []domain.Place) []domain.Marker {
	markers := make([]domain.Marker, 0, len(places)+1)
	markers = append(markers, domain.Marker{
		ID:       "user",
		Location: center,
		Color:    domain.UserMarkerColor,
		Title:    "Your Location",
	})
	for _, p := range places {
		color := ""
		if spec, err := p.Category.Spec(); err == nil {
			color = spec.Color
		}
		detail := p.Address
		if p.DistanceKm != nil {
			detail = fmt.Sprintf("%s (%.2f km away)", p.Address, *p.DistanceKm)
		}
		markers = append(markers, domain.Marker{
			ID:       p.ID,
			Location: p.Location,
			Color:    color,
			Title:    p.Name,
			Detail:   detail,
		})
	}
	return markers
}

// Displayed returns the currently displayed category, center and places.
func (s *PlaceSearchService) Displayed() (domain.Category, *domain.GeoPoint, []domain.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	places := append([]domain.Place(nil), s.places...)
	var center *domain.GeoPoint
	if s.center != nil {
		c := *s.center
		center = &c
	}
	return s.category, center, places
}

// Lookup finds a displayed place by id.
func (s *PlaceSearchService) Lookup(id string) (domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.places {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Place{}, fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, id)
}
