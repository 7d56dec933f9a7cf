package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/pkg/i18n"
)

// buildSchema creates the GraphQL schema wired to the core services.
// Field names follow the JSON tags of the domain types so the default
// resolver can read them.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	trackingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tracking",
		Fields: graphql.Fields{
			"state":            &graphql.Field{Type: graphql.String},
			"live_distance_km": &graphql.Field{Type: graphql.Float},
			"last_position":    &graphql.Field{Type: geoPointType},
			"started_at":       &graphql.Field{Type: graphql.DateTime},
			"trip_count":       &graphql.Field{Type: graphql.Int},
			"total_mileage_km": &graphql.Field{Type: graphql.Float},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"vehicle_id":  &graphql.Field{Type: graphql.String},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"started_at":  &graphql.Field{Type: graphql.DateTime},
			"ended_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	tripPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripPage",
		Fields: graphql.Fields{
			"trips":            &graphql.Field{Type: graphql.NewList(tripType)},
			"total":            &graphql.Field{Type: graphql.Int},
			"total_mileage_km": &graphql.Field{Type: graphql.Float},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"color":    &graphql.Field{Type: graphql.String},
			"terms":    &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"category":    &graphql.Field{Type: graphql.String},
		},
	})

	stepType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStep",
		Fields: graphql.Fields{
			"instruction": &graphql.Field{Type: graphql.String},
			"distance_km": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"total_distance_km":      &graphql.Field{Type: graphql.Float},
			"total_duration_minutes": &graphql.Field{Type: graphql.Float},
			"steps":                  &graphql.Field{Type: graphql.NewList(stepType)},
		},
	})

	activeRouteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ActiveRoute",
		Fields: graphql.Fields{
			"origin":      &graphql.Field{Type: geoPointType},
			"destination": &graphql.Field{Type: placeType},
			"route":       &graphql.Field{Type: routeType},
			"planned_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tracking": &graphql.Field{
				Type:        trackingType,
				Description: "Current tracker state and live distance",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tracker.Snapshot(), nil
				},
			},
			"tripHistory": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "Trips recorded in this session, most recent first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tracker.History(), nil
				},
			},
			"archivedTrips": &graphql.Field{
				Type:        tripPageType,
				Description: "Persisted trips of the vehicle, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Trips == nil {
						return nil, errors.New("trip archive not configured")
					}
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					trips, total, err := deps.Trips.List(p.Context, deps.VehicleID, offset, limit)
					if err != nil {
						return nil, err
					}
					mileage, err := deps.Trips.Odometer(p.Context, deps.VehicleID)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"trips":            trips,
						"total":            total,
						"total_mileage_km": mileage,
					}, nil
				},
			},
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Searchable place categories",
				Args: graphql.FieldConfigArgument{
					"lang": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lang, _ := p.Args["lang"].(string)
					if lang == "" {
						lang = deps.Language
					}
					tr := i18n.New(lang)
					var out []categoryView
					for _, s := range domain.Categories() {
						out = append(out, categoryView{Category: s.Category, Label: tr(s.LabelKey), Color: s.Color, Terms: s.Terms})
					}
					return out, nil
				},
			},
			"places": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places currently displayed on the map",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					_, _, places := deps.Search.Displayed()
					return places, nil
				},
			},
			"activeRoute": &graphql.Field{
				Type:        activeRouteType,
				Description: "Route currently drawn on the map, if any",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if active := deps.Planner.Active(); active != nil {
						return active, nil
					}
					return nil, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"startTracking": &graphql.Field{
				Type: trackingType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Tracker.Start(p.Context); err != nil {
						return nil, err
					}
					return deps.Tracker.Snapshot(), nil
				},
			},
			"stopTracking": &graphql.Field{
				Type:        tripType,
				Description: "Stops tracking and returns the recorded trip (null when nothing was driven)",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					trip, err := deps.Tracker.Stop(p.Context)
					if err != nil || trip == nil {
						return nil, err
					}
					return trip, nil
				},
			},
			"clearRoute": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					deps.Planner.Clear()
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
