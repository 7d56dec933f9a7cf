package domain

import "errors"

var (
	// ErrPermissionDenied is returned when the user declined location or notification access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTimeout is returned when no position fix arrived within the requested bound.
	ErrTimeout = errors.New("timed out waiting for position")
	// ErrUnavailable is returned when a provider or platform capability is absent.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrRequestFailed is returned when a search or directions call failed.
	ErrRequestFailed = errors.New("request failed")
	// ErrNoRouteFound is returned when the directions provider returned no path.
	ErrNoRouteFound = errors.New("no route found")
	// ErrUnauthorized is returned when the token-issuing backend rejected the session.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrPlaceNotFound     = errors.New("place not found")
	// ErrTripExists is returned when a trip with the same id is already stored.
	ErrTripExists = errors.New("trip already archived")
	// ErrCacheMiss is returned by a cache when the key is absent.
	ErrCacheMiss = errors.New("cache miss")

	// ErrSuperseded marks a result computed for a request that is no longer current.
	ErrSuperseded = errors.New("superseded by a newer request")
)
