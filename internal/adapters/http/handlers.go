package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/carcompanion/internal/adapters/mapview"
	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/pkg/i18n"
)

var errMissingCoordinates = errors.New("lat and lon are required")

// ---- Tracking ----

// TrackingStateHandler returns the tracker state and live distance.
func TrackingStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.JSON(deps.Tracker.Snapshot())
	}
}

// StartTrackingHandler begins a tracking session. Starting while already
// tracking is a no-op and returns the current state.
func StartTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tracker.Start(c.UserContext()); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(deps.Tracker.Snapshot())
	}
}

// StopTrackingHandler ends the session and returns the recorded trip,
// or null when nothing was driven.
func StopTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trip, err := deps.Tracker.Stop(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"trip":     trip,
			"tracking": deps.Tracker.Snapshot(),
		})
	}
}

// TripHistoryHandler returns the in-memory trip history, most recent first.
func TripHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trips := deps.Tracker.History()
		if trips == nil {
			trips = []domain.Trip{}
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.JSON(fiber.Map{
			"trips":            trips,
			"total_mileage_km": deps.Tracker.TotalMileageKm(),
		})
	}
}

// ResetHistoryHandler empties the in-memory history. A live session is kept.
func ResetHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Tracker.ResetHistory(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Places ----

type categoryView struct {
	Category domain.Category `json:"category"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
	Terms    []string        `json:"terms"`
}

// requestLanguage picks ?lang=, then Accept-Language, then the configured
// language, and reports the resolved one in Content-Language.
func requestLanguage(c *fiber.Ctx, fallback string) string {
	lang := c.Query("lang")
	if lang == "" {
		lang = c.Get(fiber.HeaderAcceptLanguage, fallback)
	}
	tag, _ := i18n.Match(lang)
	c.Set(fiber.HeaderContentLanguage, tag.String())
	return tag.String()
}

// LanguagesHandler lists the languages notices and labels are available in.
func LanguagesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		return c.JSON(fiber.Map{"default": i18n.DefaultLanguage, "languages": i18n.Languages()})
	}
}

// CategoriesHandler lists the searchable categories with translated labels.
// ?lang= overrides the configured language.
func CategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tr := i18n.New(requestLanguage(c, deps.Language))

		cats := domain.Categories()
		out := make([]categoryView, 0, len(cats))
		for _, s := range cats {
			out = append(out, categoryView{
				Category: s.Category,
				Label:    tr(s.LabelKey),
				Color:    s.Color,
				Terms:    s.Terms,
			})
		}

		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		return c.JSON(out)
	}
}

// NearbyPlacesHandler searches a category around a point and makes the
// result the displayed set.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := pointFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		category, err := domain.ParseCategory(c.Query("category"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		places, err := deps.Search.Show(c.UserContext(), center, category)
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(fiber.Map{
			"category": category,
			"center":   center,
			"places":   places,
		})
	}
}

// DisplayedPlacesHandler returns the places currently shown on the map.
func DisplayedPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, center, places := deps.Search.Displayed()
		if places == nil {
			places = []domain.Place{}
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.JSON(fiber.Map{
			"category": category,
			"center":   center,
			"places":   places,
		})
	}
}

func pointFromQuery(c *fiber.Ctx) (domain.GeoPoint, error) {
	rawLat, rawLon := c.Query("lat"), c.Query("lon")
	if rawLat == "" || rawLon == "" {
		return domain.GeoPoint{}, errMissingCoordinates
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return domain.GeoPoint{}, errMissingCoordinates
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return domain.GeoPoint{}, errMissingCoordinates
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, domain.ErrInvalidCoordinate
	}
	return p, nil
}

// ---- Routes ----

type planRouteRequest struct {
	Origin  domain.GeoPoint `json:"origin"`
	PlaceID string          `json:"place_id"`
}

// PlanRouteHandler plans a route from origin to one of the displayed places.
func PlanRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req planRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.PlaceID == "" {
			return errBadRequest(c, "place_id is required")
		}
		if !req.Origin.Valid() {
			return errBadRequest(c, domain.ErrInvalidCoordinate.Error())
		}

		place, err := deps.Search.Lookup(req.PlaceID)
		if err != nil {
			return errFromDomain(c, err)
		}

		route, err := deps.Planner.Plan(c.UserContext(), req.Origin, place)
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"destination": place,
			"route":       route,
		})
	}
}

// ClearRouteHandler removes the route overlay. Clearing twice is fine.
func ClearRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Planner.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ActiveRouteHandler returns the route currently drawn on the map.
func ActiveRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		active := deps.Planner.Active()
		if active == nil {
			return errNotFound(c, "no active route")
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.JSON(active)
	}
}

// ActiveRouteGeoJSONHandler exports the active route as a FeatureCollection.
func ActiveRouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		active := deps.Planner.Active()
		if active == nil {
			return errNotFound(c, "no active route")
		}
		data, err := mapview.RouteFeatureCollection(active).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// ActiveRouteKMLHandler exports the active route as KML.
func ActiveRouteKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		active := deps.Planner.Active()
		if active == nil {
			return errNotFound(c, "no active route")
		}
		data, err := mapview.RouteKML(active)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/vnd.google-earth.kml+xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="route.kml"`)
		return c.Send(data)
	}
}

// ---- Map ----

// MapSceneHandler returns the camera, markers and route the UI should draw.
func MapSceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Scene.Snapshot()
		if snap.Markers == nil {
			snap.Markers = []domain.Marker{}
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.JSON(snap)
	}
}

// ---- Persisted trips ----

// TripPage is a page of archived trips plus the vehicle odometer.
type TripPage struct {
	PaginatedResponse
	TotalMileageKm float64 `json:"total_mileage_km"`
}

// ListTripsHandler returns archived trips of the configured vehicle, newest first.
func ListTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Trips == nil {
			return newError(c, fiber.StatusServiceUnavailable, "unavailable", "trip archive not configured")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		ctx := c.UserContext()
		trips, total, err := deps.Trips.List(ctx, deps.VehicleID, offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if trips == nil {
			trips = []domain.Trip{}
		}

		mileage, err := deps.Trips.Odometer(ctx, deps.VehicleID)
		if err != nil {
			LoggerFromCtx(ctx).Warn("odometer lookup failed", "vehicle_id", deps.VehicleID, "error", err)
		}

		LoggerFromCtx(ctx).Debug("trips listed", "user_id", UserIDFromCtx(c), "total", total)

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set(fiber.HeaderCacheControl, "private, max-age=30")
		return c.JSON(TripPage{
			PaginatedResponse: PaginatedResponse{Data: trips, Pagination: pg},
			TotalMileageKm:    mileage,
		})
	}
}
